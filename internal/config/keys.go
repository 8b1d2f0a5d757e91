// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value by its file key, e.g. "chat.history_cap".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a configuration value by its file key. String input is
// converted to the field type; lists take comma-separated values.
// The result is not validated; call Validate afterwards.
func (c *Config) Set(key string, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("'%s' is a section, not a value", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return v, nil
}

// fieldByTag finds the field of struct v whose toml tag is name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := range t.NumField() {
		if tagName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tagName(f reflect.StructField) string {
	tag, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return tag
}

// setFieldValue converts s into the kind of field.
func setFieldValue(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %w", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "on":
			field.SetBool(true)
		case "0", "false", "no", "off":
			field.SetBool(false)
		default:
			return fmt.Errorf("invalid boolean value: %q", s)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("cannot assign to %s", field.Type())
		}
		var list []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		field.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("cannot assign to %s", field.Type())
	}
	return nil
}

// Keys returns every configuration key in dot notation, in struct order.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := range t.NumField() {
			f := t.Field(i)
			name := prefix + tagName(f)
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}
