package service_test

import (
	"studydrive-downloader/internal/model"
	"studydrive-downloader/internal/service"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver() *service.ReferenceResolver {
	return service.NewReferenceResolver("https://www.studydrive.net/", []string{"studydrive.net"})
}

func TestResolve_AcceptedShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		slug string
		id   int64
		url  string
	}{
		{
			name: "doc с языком",
			raw:  "https://www.studydrive.net/en/doc/algebra-notes/42",
			slug: "algebra-notes",
			id:   42,
			url:  "https://www.studydrive.net/en/doc/algebra-notes/42",
		},
		{
			name: "doc без языка, http и без www",
			raw:  "http://studydrive.net/doc/algebra-notes/42/",
			slug: "algebra-notes",
			id:   42,
			url:  "https://studydrive.net/doc/algebra-notes/42",
		},
		{
			name: "documents со slug-id",
			raw:  "https://www.studydrive.net/documents/linear-algebra-summary-1337?ref=share#top",
			slug: "linear-algebra-summary-1337",
			id:   1337,
			url:  "https://www.studydrive.net/documents/linear-algebra-summary-1337",
		},
		{
			name: "регистр хоста",
			raw:  "  https://WWW.StudyDrive.net/de/doc/skript/7  ",
			slug: "skript",
			id:   7,
			url:  "https://www.studydrive.net/de/doc/skript/7",
		},
	}

	resolver := newResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := resolver.Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.slug, ref.Slug)
			assert.Equal(t, tt.id, ref.ID)
			assert.Equal(t, tt.url, ref.URL)
		})
	}
}

func TestResolve_Rejected(t *testing.T) {
	rejected := []string{
		"",
		"not a url",
		"ftp://www.studydrive.net/doc/algebra-notes/42",
		"https://evil.com/doc/algebra-notes/42",
		"https://studydrive.net.evil.com/doc/algebra-notes/42",
		"https://user@www.studydrive.net/doc/algebra-notes/42",
		"https://www.studydrive.net:8443/doc/algebra-notes/42",
		"https://www.studydrive.net/doc/algebra-notes",
		"https://www.studydrive.net/doc/algebra-notes/0",
		"https://www.studydrive.net/doc/algebra-notes/abc",
		"https://www.studydrive.net/documents/algebra-notes",
		"https://www.studydrive.net/course/linear-algebra/42",
		"https://www.studydrive.net/doc/algebra-notes/99999999999999999999",
	}

	resolver := newResolver()
	for _, raw := range rejected {
		t.Run(raw, func(t *testing.T) {
			_, err := resolver.Resolve(raw)
			assert.ErrorIs(t, err, model.ErrInvalidReference)
		})
	}
}

func TestValidate(t *testing.T) {
	resolver := newResolver()

	ref, err := resolver.Validate("algebra-notes", 42)
	require.NoError(t, err)
	assert.Equal(t, "https://www.studydrive.net/doc/algebra-notes/42", ref.URL)
	assert.Equal(t, "/document/algebra-notes/42", ref.Path())

	_, err = resolver.Validate("../etc", 42)
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	_, err = resolver.Validate("algebra-notes", -1)
	assert.ErrorIs(t, err, model.ErrInvalidReference)
}
