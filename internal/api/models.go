package api

import "github.com/oglimmer/picz2/internal/common"

// Album is one server-side album, as returned by GET /api/albums.
type Album struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	DisplayOrder    *int    `json:"displayOrder"`
	FileCount       *int    `json:"fileCount"`
	CoverImageToken *string `json:"coverImageToken"`
	ShareToken      *string `json:"shareToken"`
	CreatedAt       *string `json:"createdAt"`
	UpdatedAt       *string `json:"updatedAt"`
}

// Response envelopes. Required fields are pointers so decoding can fail
// closed: an absent field is a schema violation, not an empty value.

type albumsResponse struct {
	Success *bool   `json:"success"`
	Albums  []Album `json:"albums"`
}

func (r *albumsResponse) validate() error {
	if r.Success == nil {
		return &common.DecodeError{Endpoint: "albums", Reason: "missing success field"}
	}
	if r.Albums == nil {
		return &common.DecodeError{Endpoint: "albums", Reason: "missing albums field"}
	}
	for _, a := range r.Albums {
		if a.Name == "" {
			return &common.DecodeError{Endpoint: "albums", Reason: "album without a name"}
		}
	}
	return nil
}

type targetAlbumResponse struct {
	Success *bool  `json:"success"`
	AlbumID *int64 `json:"albumId"`
}

func (r *targetAlbumResponse) validate() error {
	if r.Success == nil {
		return &common.DecodeError{Endpoint: "target-album", Reason: "missing success field"}
	}
	// AlbumID may legitimately be null: no target album is selected.
	return nil
}

type checksumsResponse struct {
	Success   *bool    `json:"success"`
	Checksums []string `json:"checksums"`
	Count     *int     `json:"count"`
}

func (r *checksumsResponse) validate() error {
	if r.Success == nil {
		return &common.DecodeError{Endpoint: "uploaded-checksums", Reason: "missing success field"}
	}
	if r.Checksums == nil {
		return &common.DecodeError{Endpoint: "uploaded-checksums", Reason: "missing checksums field"}
	}
	if r.Count != nil && *r.Count != len(r.Checksums) {
		return &common.DecodeError{Endpoint: "uploaded-checksums", Reason: "count does not match checksum list"}
	}
	return nil
}

type authCheckResponse struct {
	Success *bool  `json:"success"`
	Email   string `json:"email"`
}

func (r *authCheckResponse) validate() error {
	if r.Success == nil {
		return &common.DecodeError{Endpoint: "auth-check", Reason: "missing success field"}
	}
	return nil
}
