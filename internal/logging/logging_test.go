package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("JSON形式で属性が出力されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		New(&buf, "info", "json").InfoContext(context.Background(), "起動", "port", "8080")

		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("ログのパースに失敗: %v, output=%s", err, buf.String())
		}
		if got["msg"] != "起動" {
			t.Errorf("msg = %v, want %q", got["msg"], "起動")
		}
		if got["port"] != "8080" {
			t.Errorf("port = %v, want %q", got["port"], "8080")
		}
	})

	t.Run("text形式とレベル指定が反映されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		l := New(&buf, "warn", "text")
		l.Info("出力されない")
		l.Warn("出力される", "kind", "credential_expired")

		out := buf.String()
		if strings.Contains(out, "出力されない") {
			t.Errorf("INFOログが出力された: %s", out)
		}
		if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "kind=credential_expired") {
			t.Errorf("WARNログが期待通りでない: %s", out)
		}
	})

	t.Run("不明なレベルはINFOとして扱われること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		l := New(&buf, "verbose", "text")
		l.Debug("debug")
		l.Info("info")

		out := buf.String()
		if strings.Contains(out, "msg=debug") {
			t.Errorf("DEBUGログが出力された: %s", out)
		}
		if !strings.Contains(out, "msg=info") {
			t.Errorf("INFOログが出力されない: %s", out)
		}
	})
}
