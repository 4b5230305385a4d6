package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// remoteColumn is one entry of the protocol's meta array.
type remoteColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// remoteEnvelope is the protocol's success body: declared columns plus
// positional data rows. Rows is optional and defaults to len(Data).
type remoteEnvelope struct {
	Meta []remoteColumn `json:"meta"`
	Data [][]any        `json:"data"`
	Rows *int           `json:"rows"`
}

// candidateParser is one strategy for reading a response body. Parsers are
// tried in order; the first success wins. When every parser fails, a
// line-scoped error beats the first parser's error because it pinpoints the
// offending input.
type candidateParser struct {
	name  string
	parse func(body []byte) (*remoteEnvelope, error)
}

var remoteParsers = []candidateParser{
	{name: "object", parse: parseSingleObject},
	{name: "ndjson", parse: parseLineDelimited},
}

// RemoteBody converts a remote protocol response body into a QueryResult.
func RemoteBody(body []byte) (*models.QueryResult, error) {
	var firstErr error
	var lineErr *srvErrors.MalformedResponseError
	for _, p := range remoteParsers {
		env, err := p.parse(body)
		if err == nil {
			return envelopeToResult(env), nil
		}
		if firstErr == nil {
			firstErr = err
		}
		var mre *srvErrors.MalformedResponseError
		if lineErr == nil && errors.As(err, &mre) && mre.Line > 0 {
			lineErr = mre
		}
	}
	if lineErr != nil {
		return nil, lineErr
	}
	return nil, firstErr
}

func parseSingleObject(body []byte) (*remoteEnvelope, error) {
	var env remoteEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, srvErrors.NewMalformedResponseError(0, preview(string(body)), err)
	}
	if env.Meta == nil {
		return nil, srvErrors.NewMalformedResponseError(0, preview(string(body)), fmt.Errorf("response has no meta section"))
	}
	return &env, nil
}

// parseLineDelimited handles newline-delimited variants: each non-empty line
// is parsed independently. The result is either the one line carrying both
// meta and data, or a merge of a meta-only line with a data-only line.
func parseLineDelimited(body []byte) (*remoteEnvelope, error) {
	lines := strings.Split(string(body), "\n")

	var parsed []remoteEnvelope
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		var env remoteEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
			return nil, srvErrors.NewMalformedResponseError(i+1, preview(trimmed), err)
		}
		parsed = append(parsed, env)
	}

	for i := range parsed {
		if parsed[i].Meta != nil && parsed[i].Data != nil {
			return &parsed[i], nil
		}
	}

	var meta *remoteEnvelope
	var data *remoteEnvelope
	for i := range parsed {
		if parsed[i].Meta != nil && meta == nil {
			meta = &parsed[i]
		}
		if parsed[i].Data != nil && data == nil {
			data = &parsed[i]
		}
	}
	if meta != nil && data != nil {
		merged := &remoteEnvelope{Meta: meta.Meta, Data: data.Data, Rows: data.Rows}
		if merged.Rows == nil {
			merged.Rows = meta.Rows
		}
		return merged, nil
	}

	return nil, srvErrors.NewMalformedResponseError(0, preview(string(body)), fmt.Errorf("no line contains both meta and data"))
}

// envelopeToResult zips positional data rows into name-keyed rows in declared
// column order. Rows shorter than the column list leave the missing cells nil.
func envelopeToResult(env *remoteEnvelope) *models.QueryResult {
	columns := make([]string, len(env.Meta))
	types := make([]string, len(env.Meta))
	for i, m := range env.Meta {
		columns[i] = m.Name
		types[i] = m.Type
	}

	data := make([]models.Row, 0, len(env.Data))
	for _, raw := range env.Data {
		row := make(models.Row, len(columns))
		for i, col := range columns {
			if i < len(raw) {
				row[col] = raw[i]
			} else {
				row[col] = nil
			}
		}
		data = append(data, row)
	}

	rowCount := len(data)
	if env.Rows != nil {
		rowCount = *env.Rows
	}

	return &models.QueryResult{
		Columns:     columns,
		ColumnTypes: types,
		Data:        data,
		RowCount:    rowCount,
	}
}

const previewLen = 80

func preview(s string) string {
	if len(s) > previewLen {
		return s[:previewLen] + "..."
	}
	return s
}
