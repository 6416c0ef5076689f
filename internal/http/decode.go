package http

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var errEmptyBody = errors.New("request body is empty")

// bind decodes the request body into dst, a pointer to a flat struct.
// JSON bodies use the json tags, form posts use the form tags. Fields the
// struct does not declare are rejected either way.
func bind(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return decodeJSON(r.Body, dst)
	}
	if err := r.ParseForm(); err != nil {
		return errors.Wrap(err, "parse form")
	}
	return decodeForm(r.PostForm, dst)
}

func decodeJSON(body io.Reader, dst interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return errors.Wrap(err, "decode json")
	}
	if dec.More() {
		return errors.New("unexpected data after json body")
	}
	return nil
}

func decodeForm(values map[string][]string, dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.New("form target must be a struct pointer")
	}
	v = v.Elem()
	t := v.Type()

	known := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("form"), ",")
		if name != "" && name != "-" {
			known[name] = i
		}
	}

	for key, vals := range values {
		idx, ok := known[key]
		if !ok {
			return fmt.Errorf("unknown field %q", key)
		}
		if len(vals) == 0 {
			continue
		}
		if err := setField(v.Field(idx), vals[0]); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

func setField(f reflect.Value, raw string) error {
	if f.Kind() == reflect.Pointer {
		elem := reflect.New(f.Type().Elem())
		if err := setField(elem.Elem(), raw); err != nil {
			return err
		}
		f.Set(elem)
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return err
		}
		f.SetInt(n)
	case reflect.Bool:
		f.SetBool(checked(raw))
	default:
		return fmt.Errorf("unsupported kind %s", f.Kind())
	}
	return nil
}

// checked reads an HTML checkbox value.
func checked(raw string) bool {
	return raw == "on" || raw == "true"
}
