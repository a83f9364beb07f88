package controllers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type importError struct {
	Row   int    `json:"row"`
	Key   string `json:"key,omitempty"`
	Error string `json:"error"`
}

// csvUpload is a parsed multipart "file" field.
type csvUpload struct {
	headerIdx map[string]int
	rows      [][]string
	// rowErrs holds rows the reader could not parse.
	rowErrs []importError
}

func (u *csvUpload) get(record []string, key string) string {
	idx, ok := u.headerIdx[key]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// readCSVUpload reads the uploaded .csv, accepting ',' or ';' separators,
// a UTF-8 BOM and any line ending. It writes the 400 response itself and
// returns false on failure.
func readCSVUpload(c *gin.Context, required ...string) (*csvUpload, bool) {
	// Limit max upload size (10MB) to avoid accidental huge files.
	if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse form"})
		return nil, false
	}
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return nil, false
	}
	defer file.Close()

	filename := strings.ToLower(strings.TrimSpace(fileHeader.Filename))
	if !strings.HasSuffix(filename, ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv files are allowed"})
		return nil, false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return nil, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
		return nil, false
	}

	data = bytes.ReplaceAll(data, []byte{'\r', '\n'}, []byte{'\n'})
	data = bytes.ReplaceAll(data, []byte{'\r'}, []byte{'\n'})
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	firstLineEnd := bytes.IndexByte(data, '\n')
	if firstLineEnd == -1 {
		firstLineEnd = len(data)
	}
	firstLine := data[:firstLineEnd]

	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	if bytes.Contains(firstLine, []byte{';'}) && !bytes.Contains(firstLine, []byte{','}) {
		r.Comma = ';'
	}

	header, err := r.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read header"})
		return nil, false
	}
	up := &csvUpload{headerIdx: make(map[string]int, len(header))}
	for idx, col := range header {
		key := strings.ToLower(strings.Trim(strings.TrimSpace(col), "\"'"))
		if key != "" {
			up.headerIdx[key] = idx
		}
	}
	for _, key := range required {
		if _, ok := up.headerIdx[key]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing header column: %s", key)})
			return nil, false
		}
	}

	rowNum := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			up.rowErrs = append(up.rowErrs, importError{Row: rowNum, Error: fmt.Sprintf("failed to read row: %v", err)})
			up.rows = append(up.rows, nil)
			continue
		}
		up.rows = append(up.rows, row)
	}
	return up, true
}

func importSummary(c *gin.Context, total, inserted int, failures []importError) {
	if failures == nil {
		failures = []importError{}
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": gin.H{
			"total_rows": total,
			"inserted":   inserted,
			"failed":     len(failures),
		},
		"errors": failures,
	})
}
