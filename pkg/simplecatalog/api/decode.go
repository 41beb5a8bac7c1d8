package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// flexInt accepts a JSON number or a numeric string. Form-backed clients
// send "2010" as often as 2010.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw, empty := unquoteNumber(data)
	if empty {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n != math.Trunc(n) {
		return fmt.Errorf("%s is not a whole number", raw)
	}
	*f = flexInt(n)
	return nil
}

// flexFloat is flexInt for decimals.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	raw, empty := unquoteNumber(data)
	if empty {
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Errorf("%s is not a number", raw)
	}
	*f = flexFloat(n)
	return nil
}

func unquoteNumber(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", true
	}
	raw := string(data)
	if s, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(s)
	}
	return raw, raw == ""
}

// movieBody is the JSON body of movie create and update requests
type movieBody struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ReleaseYear flexInt    `json:"releaseYear"`
	Genre       string     `json:"genre"`
	Rating      *flexFloat `json:"rating"`
	ImageKey    string     `json:"imageKey"`
	ImageURL    string     `json:"imageUrl"`
}

func (b movieBody) toRequest() simplecatalog.CreateMovieRequest {
	req := simplecatalog.CreateMovieRequest{
		Title:       b.Title,
		Description: b.Description,
		ReleaseYear: int(b.ReleaseYear),
		Genre:       b.Genre,
		ImageKey:    b.ImageKey,
		ImageURL:    b.ImageURL,
	}
	if b.Rating != nil {
		rating := float64(*b.Rating)
		req.Rating = &rating
	}
	return req
}

// decodeJSON decodes the request body into v
func decodeJSON(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: request body is empty", simplecatalog.ErrInvalidInput)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", simplecatalog.ErrInvalidInput, err)
	}
	return nil
}
