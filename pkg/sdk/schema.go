package lshdex

import (
	"fmt"
	"reflect"
	"strings"
)

const tagKey = "lshdex"

// textSeparator joins multiple text fields into one document body.
const textSeparator = "\n"

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
type schemaMeta struct {
	typ reflect.Type

	idIdx   int
	textIdx []int // in struct field order
}

// parseSchema reflects on T and extracts lshdex struct tag metadata.
//
//	type Page struct {
//	    URL   string `lshdex:"url,id"`
//	    Title string `lshdex:"title,text"`
//	    Body  string `lshdex:"body,text"`
//	}
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("lshdex: type parameter must be a struct")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("lshdex: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f.Name, tag); err != nil {
			return nil, err
		}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("lshdex: no field with `lshdex:\"...,id\"` tag in %s", t)
	}
	if len(meta.textIdx) == 0 {
		return nil, fmt.Errorf("lshdex: no field with `lshdex:\"...,text\"` tag in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's lshdex tag.
func applyTag(meta *schemaMeta, idx int, fieldName, tag string) error {
	_, modifier, _ := strings.Cut(tag, ",")

	switch modifier {
	case "id":
		if meta.idIdx != -1 {
			return fmt.Errorf("lshdex: duplicate id tag on field %s", fieldName)
		}
		meta.idIdx = idx
	case "text":
		meta.textIdx = append(meta.textIdx, idx)
	case "":
		// Named but not indexed.
	default:
		return fmt.Errorf("lshdex: unknown modifier %q on field %s", modifier, fieldName)
	}
	return nil
}

// toDocument converts a typed struct to a Document using schema metadata.
func (m *schemaMeta) toDocument(item any) Document {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	parts := make([]string, 0, len(m.textIdx))
	for _, i := range m.textIdx {
		if s := textOf(v.Field(i)); s != "" {
			parts = append(parts, s)
		}
	}
	return Document{
		ID:   fmt.Sprint(v.Field(m.idIdx).Interface()),
		Text: strings.Join(parts, textSeparator),
	}
}

// idOf returns the document ID of item.
func (m *schemaMeta) idOf(item any) string {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return fmt.Sprint(v.Field(m.idIdx).Interface())
}

func textOf(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
		if v.Type().Elem().Kind() == reflect.String {
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = v.Index(i).String()
			}
			return strings.Join(parts, textSeparator)
		}
	}
	return fmt.Sprint(v.Interface())
}
