package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/httputil"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

func testNotifier(t *testing.T, handler http.HandlerFunc) *WeComNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Env:       "test",
		LogLevel:  "error",
		LogFormat: "json",
		WeCom:     config.WeComConfig{WebhookURL: srv.URL, Enabled: true},
	}
	log := logger.New(cfg)
	n := NewWeComNotifier(cfg, httputil.New(cfg, log).DisableRetry(), log)
	n.batchInterval = time.Millisecond
	return n
}

func TestWeCom_SendText(t *testing.T) {
	var got wecomPayload
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	})

	err := n.SendText(context.Background(), "稳健仓：买入 510300")
	require.NoError(t, err)

	assert.Equal(t, "text", got.MsgType)
	assert.Contains(t, got.Text.Content, "鱼盆系统时间：")
	assert.Contains(t, got.Text.Content, "稳健仓：买入 510300")
}

func TestWeCom_SendTextRejected(t *testing.T) {
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":93000,"errmsg":"invalid webhook url"}`))
	})

	err := n.SendText(context.Background(), "测试")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid webhook url")
}

func TestWeCom_DisabledIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := &config.Config{
		Env:       "test",
		LogLevel:  "error",
		LogFormat: "json",
		WeCom:     config.WeComConfig{WebhookURL: srv.URL, Enabled: false},
	}
	log := logger.New(cfg)
	n := NewWeComNotifier(cfg, httputil.New(cfg, log), log)

	require.NoError(t, n.SendText(context.Background(), "不该发出去"))
	assert.False(t, called)
}

func TestWeCom_NoWebhookIsNoop(t *testing.T) {
	cfg := &config.Config{
		Env:       "test",
		LogLevel:  "error",
		LogFormat: "json",
		WeCom:     config.WeComConfig{Enabled: true},
	}
	log := logger.New(cfg)
	n := NewWeComNotifier(cfg, httputil.New(cfg, log), log)

	assert.NoError(t, n.SendText(context.Background(), "没配webhook"))
}

func TestWeCom_SendBatch(t *testing.T) {
	var count int
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		count++
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	})

	err := n.SendBatch(context.Background(), []string{"一", "二", "三"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestWeCom_SendBatchKeepsGoingAfterFailure(t *testing.T) {
	var count int
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		count++
		if count == 1 {
			w.Write([]byte(`{"errcode":45009,"errmsg":"api freq out of limit"}`))
			return
		}
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	})

	err := n.SendBatch(context.Background(), []string{"一", "二"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/2")
	assert.Equal(t, 2, count, "second message still sent")
}

func TestWeCom_SendBatchHonorsContext(t *testing.T) {
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	})
	n.batchInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := n.SendBatch(ctx, []string{"一", "二"})
	assert.ErrorIs(t, err, context.Canceled)
}
