package collect

import "net/http"

// Page is a fetched document with the response metadata kept for audit.
type Page struct {
	URL  string
	Body []byte
	Meta PageMeta
}

// PageMeta is persisted next to every raw page. Missing headers stay nil so
// they serialise as JSON null.
type PageMeta struct {
	URL          string  `json:"url"`
	StatusCode   int     `json:"status"`
	Date         *string `json:"date"`
	ContentType  *string `json:"content-type"`
	LastModified *string `json:"last-modified"`
}

func NewPageMeta(url string, resp *http.Response) PageMeta {
	return PageMeta{
		URL:          url,
		StatusCode:   resp.StatusCode,
		Date:         header(resp.Header, "Date"),
		ContentType:  header(resp.Header, "Content-Type"),
		LastModified: header(resp.Header, "Last-Modified"),
	}
}

func header(h http.Header, key string) *string {
	v := h.Get(key)
	if v == "" {
		return nil
	}
	return &v
}
