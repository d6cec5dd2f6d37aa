package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"studydrive-downloader/internal/model"
)

var (
	// /documents/algebra-notes-42
	documentsPath = regexp.MustCompile(`^/documents/([A-Za-z0-9][A-Za-z0-9_-]*-([0-9]+))/?$`)
	// /en/doc/algebra-notes/42 или /doc/algebra-notes/42
	docPath  = regexp.MustCompile(`^(?:/[a-z]{2})?/doc/([A-Za-z0-9][A-Za-z0-9_%.-]*)/([0-9]+)/?$`)
	slugOnly = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_%.-]*$`)
)

// ReferenceResolver : проверяет ссылку на документ источника и извлекает (slug, id).
// Чистая функция: никакого сетевого ввода-вывода.
type ReferenceResolver struct {
	baseURL string
	hosts   map[string]struct{}
}

func NewReferenceResolver(baseURL string, hosts []string) *ReferenceResolver {
	allowed := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		allowed[normalizeHost(host)] = struct{}{}
	}
	return &ReferenceResolver{baseURL: strings.TrimSuffix(baseURL, "/"), hosts: allowed}
}

func (r *ReferenceResolver) Resolve(raw string) (model.Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Reference{}, fmt.Errorf("%w: пустая ссылка", model.ErrInvalidReference)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return model.Reference{}, fmt.Errorf("%w: %v", model.ErrInvalidReference, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return model.Reference{}, fmt.Errorf("%w: неподдерживаемая схема %q", model.ErrInvalidReference, parsed.Scheme)
	}
	if parsed.User != nil || parsed.Port() != "" {
		return model.Reference{}, fmt.Errorf("%w: неожиданный адрес %q", model.ErrInvalidReference, parsed.Host)
	}
	if _, ok := r.hosts[normalizeHost(parsed.Hostname())]; !ok {
		return model.Reference{}, fmt.Errorf("%w: чужой хост %q", model.ErrInvalidReference, parsed.Hostname())
	}

	var slug, idPart string
	if m := documentsPath.FindStringSubmatch(parsed.Path); m != nil {
		slug, idPart = m[1], m[2]
	} else if m := docPath.FindStringSubmatch(parsed.Path); m != nil {
		slug, idPart = m[1], m[2]
	} else {
		return model.Reference{}, fmt.Errorf("%w: в пути %q нет id документа", model.ErrInvalidReference, parsed.Path)
	}

	id, err := parseID(idPart)
	if err != nil {
		return model.Reference{}, err
	}

	return model.Reference{
		Slug: slug,
		ID:   id,
		URL:  canonicalURL(parsed),
	}, nil
}

// Validate : для клиентов, пришедших сразу с парой (slug, id)
func (r *ReferenceResolver) Validate(slug string, id int64) (model.Reference, error) {
	if !slugOnly.MatchString(slug) {
		return model.Reference{}, fmt.Errorf("%w: некорректный slug %q", model.ErrInvalidReference, slug)
	}
	if id <= 0 {
		return model.Reference{}, fmt.Errorf("%w: некорректный id %d", model.ErrInvalidReference, id)
	}
	return model.Reference{
		Slug: slug,
		ID:   id,
		URL:  fmt.Sprintf("%s/doc/%s/%d", r.baseURL, slug, id),
	}, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: некорректный id %q", model.ErrInvalidReference, raw)
	}
	return id, nil
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSuffix(host, ".")), "www.")
}

// canonicalURL : без query и fragment, чтобы одна и та же ссылка давала одну запись
func canonicalURL(u *url.URL) string {
	clean := url.URL{
		Scheme: "https",
		Host:   strings.ToLower(u.Host),
		Path:   strings.TrimSuffix(u.Path, "/"),
	}
	return clean.String()
}
