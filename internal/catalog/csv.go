package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"travel_recommend/internal/model"
)

// headerAliases 把 CSV 表头映射到 Record 的标准字段
var headerAliases = map[string]string{
	"product_id":     "id",
	"id":             "id",
	"product_name":   "name",
	"name":           "name",
	"price":          "price",
	"activity_tags":  "activity_tags",
	"location_tags":  "location_tags",
	"product_detail": "description",
	"description":    "description",
	"is_foreign":     "is_foreign",
	"link":           "link",
}

// LoadCSV 读取带表头的商品 CSV 文件
func LoadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return Load(rows)
}

// ReadCSV 把 CSV 解析为原始记录。表头中没有名称列时整体不可用。
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &model.DataFormatError{Source: "catalog csv", Reason: "empty file"}
		}
		return nil, &model.DataFormatError{Source: "catalog csv", Reason: "unreadable header", Err: err}
	}

	columns := make([]string, len(header))
	hasName := false
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		columns[i] = headerAliases[h]
		if columns[i] == "name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, &model.DataFormatError{Source: "catalog csv", Reason: "header has no product_name/name column"}
	}

	var rows []Record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &model.DataFormatError{Source: "catalog csv", Reason: "malformed row", Err: err}
		}
		rec := make(Record, len(columns))
		for i, v := range fields {
			if i < len(columns) && columns[i] != "" {
				rec[columns[i]] = v
			}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
