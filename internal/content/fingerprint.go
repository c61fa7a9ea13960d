package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint はテキストのUTF-8バイト列に対するSHA-256ハッシュを
// 16進文字列として返す。同一入力には常に同一のダイジェストを返す。
// 正規化済みHTMLの変更判定と、生のAPI/フィードペイロードの
// 参考情報としてのハッシュの両方に使用する。
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
