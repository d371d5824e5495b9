package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envReader 覆盖已设置的环境变量，并收集解析错误
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return "", false
	}
	return strings.TrimSpace(val), true
}

func (r *envReader) fail(key, val string, err error) {
	r.errs = append(r.errs, fmt.Errorf("invalid %s=%q: %w", key, val, err))
}

func (r *envReader) string(key string, dst *string) {
	if val, ok := r.lookup(key); ok {
		*dst = val
	}
}

func (r *envReader) list(key string, dst *[]string) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *envReader) int(key string, dst *int) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val, err)
		return
	}
	*dst = n
}

func (r *envReader) int64(key string, dst *int64) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		r.fail(key, val, err)
		return
	}
	*dst = n
}

func (r *envReader) float(key string, dst *float64) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(key, val, err)
		return
	}
	*dst = f
}

func (r *envReader) bool(key string, dst *bool) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, val, err)
		return
	}
	*dst = b
}

func (r *envReader) duration(key string, dst *time.Duration) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(key, val, err)
		return
	}
	*dst = d
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
