// Package assistant は生成AIへの問い合わせを提供する。
//
// 宇宙船の運用支援AI（Mission Control）として、乗組員の質問と任意の画像から
// 診断と対処手順を生成する。実装はGemini APIを呼び出す Gemini のみ。
package assistant
