package pool

import (
	"strings"

	"github.com/mingxuan/fishbowl/internal/contracts"
)

// 宽基按指数名识别，行业按板块名识别，剩下的算主题
var broadMarkers = []string{"300", "500", "1000", "50", "创业板", "科创", "上证", "深证"}

var sectorMarkers = []string{"证券", "银行", "医疗", "医药", "军工", "半导体", "消费", "地产", "煤炭", "有色", "钢铁", "化工"}

// Classify buckets an ETF by its fund name.
func Classify(name string) contracts.Category {
	for _, m := range broadMarkers {
		if strings.Contains(name, m) {
			return contracts.CategoryBroad
		}
	}
	for _, m := range sectorMarkers {
		if strings.Contains(name, m) {
			return contracts.CategorySector
		}
	}
	return contracts.CategoryTheme
}
