// Package attachment はアップロードされた画像の保存と、保存済み画像のデータURL化を提供する。
//
// ファイルは {所有者ID}/{YYYYMMDD_HHMMSS}_{UUID}{拡張子} という相対パスで保存され、
// 同じ内容でも書き込みごとに別のパスになる（重複排除はしない）。
// 読み出し側は失敗を呼び出し元に返さず、画像が無いものとして扱う。
package attachment
