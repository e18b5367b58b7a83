package contracts

// Category classifies an ETF by what it tracks.
type Category string

const (
	CategoryBroad  Category = "broad"  // 宽基
	CategorySector Category = "sector" // 行业
	CategoryTheme  Category = "theme"  // 主题
)

// Candidate is one eligible ETF produced by the candidate pool.
// Immutable snapshot per cycle; evaluators never mutate it.
type Candidate struct {
	Code                string   `json:"code"`
	Name                string   `json:"name"`
	Category            Category `json:"category"`
	Volume              float64  `json:"volume"`               // latest daily volume, units
	ValuationPercentile float64  `json:"valuation_percentile"` // 0-100
	Score               float64  `json:"score"`                // pool ranking score
}
