package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

type Body interface {
	ToReader() (io.Reader, string, error)
}

type Parameter map[string]string

// Encode percent-encodes keys and values and sorts the pairs
// lexicographically. The deterministic order matters: OAuth 1.0a signature
// base strings are built from this encoding.
func (p Parameter) Encode() string {
	var parameters []string
	for key, value := range p {
		parameters = append(parameters, PercentEncode(key)+"="+PercentEncode(value))
	}
	sort.Strings(parameters)
	return strings.Join(parameters, "&")
}

// Form sends the parameters as a url-encoded request body.
type Form Parameter

func (f Form) ToReader() (io.Reader, string, error) {
	return strings.NewReader(Parameter(f).Encode()), "application/x-www-form-urlencoded", nil
}

type JSON map[string]any

func (j JSON) ToReader() (io.Reader, string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewBuffer(b), "application/json", nil
}

func (j JSON) Get(key string) (any, error) {
	value, ok := j[key]
	if !ok {
		return nil, fmt.Errorf("no field %s", key)
	}

	return value, nil
}

func (j JSON) GetString(key string) (string, error) {
	value, err := j.Get(key)
	if err != nil {
		return "", err
	}

	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("invalid type of field %s (%T)", key, value)
	}

	return s, nil
}

func (j JSON) GetJSON(key string) (JSON, error) {
	value, err := j.Get(key)
	if err != nil {
		return nil, err
	}

	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid type of field %s (%T)", key, value)
	}

	return JSON(m), nil
}

func (j JSON) GetArray(key string) ([]any, error) {
	value, err := j.Get(key)
	if err != nil {
		return nil, err
	}

	a, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid type of field %s (%T)", key, value)
	}

	return a, nil
}

func bytesToJSON(b []byte) (JSON, error) {
	m := JSON{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	return m, nil
}
