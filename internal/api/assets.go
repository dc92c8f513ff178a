package api

import "strings"

// RewriteImageURL превращает ссылку на внутренний хост хранилища изображений
// в относительный путь того же origin. Остальные ссылки не меняются.
func RewriteImageURL(raw, assetHost string) string {
	host := strings.TrimRight(assetHost, "/")
	if host == "" || raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, host+"/") {
		return strings.TrimPrefix(raw, host)
	}
	return raw
}
