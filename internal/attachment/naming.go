package attachment

import (
	"path"
	"path/filepath"
	"strings"
	"time"
)

// timestampLayout は保存ファイル名の日時部分の書式（秒単位、UTC）。
const timestampLayout = "20060102_150405"

// maxExtLen は保存ファイル名に引き継ぐ拡張子の最大長（ドットを含む）。
const maxExtLen = 16

// uniqueFilename は日時とランダムIDと元ファイルの拡張子から保存ファイル名を作る。
func uniqueFilename(now time.Time, randomID, originalFilename string) string {
	return now.UTC().Format(timestampLayout) + "_" + randomID + extension(originalFilename)
}

// relativePath は所有者IDとファイル名から保存先の相対パスを作る。
// 区切り文字は保存先に依らず常に "/" を使う。
func relativePath(ownerID, filename string) string {
	return path.Join(ownerID, filename)
}

// extension は元ファイル名の拡張子を返す。
// 英数字以外を含む拡張子や長すぎる拡張子は引き継がない。
func extension(originalFilename string) string {
	ext := filepath.Ext(filepath.Base(originalFilename))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if !isASCIIAlnum(r) {
			return ""
		}
	}
	return ext
}

// validOwnerID は所有者IDが単一のパス要素として使えるかを判定する。
func validOwnerID(ownerID string) bool {
	if ownerID == "" || ownerID == "." || ownerID == ".." {
		return false
	}
	return !strings.ContainsAny(ownerID, `/\`+"\x00")
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
