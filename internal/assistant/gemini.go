package assistant

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/nao1215/chimeria/pkg/httpclient"
)

// ErrEmptyResponse は生成AIが候補を返さなかったことを表す。
var ErrEmptyResponse = errors.New("生成AIの応答が空です")

// Question は問い合わせ内容。
type Question struct {
	// Text は乗組員の質問文。
	Text string
	// Image は添付画像。添付が無い場合はnil。
	Image []byte
	// MIMEType は添付画像のMIMEタイプ（例: "image/png"）。
	MIMEType string
}

// Assistant は質問に対する応答を生成する。
type Assistant interface {
	Ask(ctx context.Context, q Question) (string, error)
}

// Gemini はGemini APIの generateContent を呼び出すAssistant。
type Gemini struct {
	client *httpclient.Client
	model  string
}

// NewGemini はGeminiを生成する。
// baseURLには "https://generativelanguage.googleapis.com" のようなAPIのベースURLを指定する。
// optsはタイムアウトなどHTTPクライアントの設定に使う。
func NewGemini(baseURL, apiKey, model string, opts ...httpclient.Option) *Gemini {
	opts = append([]httpclient.Option{httpclient.WithHeader("x-goog-api-key", apiKey)}, opts...)
	return &Gemini{
		client: httpclient.New(strings.TrimRight(baseURL, "/"), opts...),
		model:  model,
	}
}

// ModelInfo はモデルのメタデータ。
type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName"`
	InputTokenLimit  int      `json:"inputTokenLimit"`
	OutputTokenLimit int      `json:"outputTokenLimit"`
	Methods          []string `json:"supportedGenerationMethods"`
}

// Model は設定されたモデルのメタデータを取得する。
// モデル名かAPIキーが誤っている場合、起動時に検出するために使う。
// generateContent に対応しないモデルはエラーになる。
func (g *Gemini) Model(ctx context.Context) (ModelInfo, error) {
	var info ModelInfo
	if err := g.client.GetJSON(ctx, g.modelPath(), &info); err != nil {
		return ModelInfo{}, fmt.Errorf("モデル情報の取得に失敗: %w", err)
	}
	if len(info.Methods) > 0 && !slices.Contains(info.Methods, "generateContent") {
		return info, fmt.Errorf("モデル %s は generateContent に対応していません", info.Name)
	}
	return info, nil
}

func (g *Gemini) modelPath() string {
	return "/v1beta/models/" + url.PathEscape(g.model)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// Ask は質問をプロンプトに組み立ててGeminiに送信し、最初の候補の本文を返す。
// 画像はプロンプトより前のパートとして送信する。
func (g *Gemini) Ask(ctx context.Context, q Question) (string, error) {
	hasImage := len(q.Image) > 0

	parts := make([]part, 0, 2)
	if hasImage {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: q.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(q.Image),
		}})
	}
	parts = append(parts, part{Text: BuildPrompt(q.Text, hasImage)})

	req := generateRequest{Contents: []content{{Role: "user", Parts: parts}}}
	var resp generateResponse
	if err := g.client.PostJSON(ctx, g.modelPath()+":generateContent", req, &resp); err != nil {
		return "", fmt.Errorf("生成AIへの問い合わせに失敗: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: finishReason=%s", ErrEmptyResponse, resp.Candidates[0].FinishReason)
	}
	return b.String(), nil
}
