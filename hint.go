package archidb

// User-facing hints shown by the map UI when the database cannot be opened.
// Messages are Japanese, matching the site's audience; the technical error
// text stays untouched next to them.

const (
	hintNetwork    = "ネットワーク接続を確認してください"
	hintTimeout    = "通信がタイムアウトしました。通信環境の良い場所で再度お試しください"
	hintSlowLink   = "回線速度が遅いため、読み込みに時間がかかっています。しばらくお待ちください"
	hintHosting    = "データベースの配信設定に問題があります。時間をおいて再度お試しください"
	hintReload     = "読み込みに失敗しました。ページを再読み込みしてください"
	hintFallback   = "高速読み込みが利用できないため、全体のダウンロードに切り替えます"
	hintUnexpected = "予期しないエラーが発生しました。時間をおいて再度お試しください"
)

// hintFor selects the user-facing hint for a failure kind, taking the probed
// connection quality into account.
func hintFor(kind Kind, quality Quality) string {
	switch kind {
	case KindConfigUnreachable, KindFileUnreachable:
		if quality == QualityVerySlow {
			return hintNetwork
		}
		return hintHosting
	case KindTimeout:
		if quality == QualitySlow || quality == QualityVerySlow {
			return hintSlowLink
		}
		return hintTimeout
	case KindLengthMismatch, KindNotSQLite:
		return hintHosting
	case KindDriverUnavailable, KindChunkedInit:
		return hintReload
	default:
		if quality == QualityVerySlow {
			return hintNetwork
		}
		return hintUnexpected
	}
}

// enrich attaches the localized hint to err. The original error text is
// preserved inside the returned error.
func enrich(err error, quality Quality) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	return &Error{
		Kind: kind,
		Op:   "initialize database",
		Hint: hintFor(kind, quality),
		err:  err,
	}
}
