package utils

import (
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"
)

func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// CheckFileExt returns the lowercased extension of fileName (with the dot)
// and whether it is one of valid (listed without the dot).
func CheckFileExt(fileName string, valid []string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return "", false
	}
	return ext, slices.Contains(valid, ext[1:])
}

func Sanitize(o any) {
	v := reflect.ValueOf(o)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic("sanitize: expected pointer to struct")
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		panic("sanitize: expected struct")
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(sanitizeString(field.String()))

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.String {
				field.Elem().SetString(sanitizeString(field.Elem().String()))
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					field.Index(j).SetString(sanitizeString(field.Index(j).String()))
				}
			}
		}
	}
}

func sanitizeString(s string) string {
	return strings.TrimSpace(s)
}
