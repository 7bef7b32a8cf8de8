package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"travel_recommend/internal/model"
)

// RawProfile 画像文件中的一条记录
type RawProfile struct {
	UserTags            map[string]float64 `json:"user_tags" yaml:"user_tags"`
	ProductsViewed      []string           `json:"products_viewed" yaml:"products_viewed"`
	AveragePrice        float64            `json:"average_price" yaml:"average_price"`
	LowestPrice         float64            `json:"lowest_price" yaml:"lowest_price"`
	HighestPrice        float64            `json:"highest_price" yaml:"highest_price"`
	ForeignTripCount    int                `json:"foreign_trip_count" yaml:"foreign_trip_count"`
	NonForeignTripCount int                `json:"non_foreign_trip_count" yaml:"non_foreign_trip_count"`
}

type profileDocument struct {
	UserAnalysis map[string]RawProfile `json:"user_analysis" yaml:"user_analysis"`
}

// LoadProfiles 由原始记录构造 Store。负权重截断为 0，小数权重四舍五入。
func LoadProfiles(raw map[string]RawProfile) *Store {
	s := NewStore()
	s.Restore(toSnapshot(raw))
	return s
}

func toSnapshot(raw map[string]RawProfile) Snapshot {
	snap := make(Snapshot, len(raw))
	for id, r := range raw {
		p := model.NewUserProfile(id)
		for tag, w := range r.UserTags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if w < 0 || math.IsNaN(w) {
				w = 0
			}
			p.TagWeights[tag] = int(math.Round(w))
		}
		for _, ref := range r.ProductsViewed {
			if ref = strings.TrimSpace(ref); ref != "" && !p.HasViewed(ref) {
				p.ViewedItems = append(p.ViewedItems, ref)
			}
		}
		p.AveragePrice = r.AveragePrice
		p.LowestPrice = r.LowestPrice
		p.HighestPrice = r.HighestPrice
		p.ForeignTripCount = r.ForeignTripCount
		p.NonForeignTripCount = r.NonForeignTripCount
		snap[id] = p
	}
	return snap
}

func fromSnapshot(snap Snapshot) map[string]RawProfile {
	out := make(map[string]RawProfile, len(snap))
	for id, p := range snap {
		tags := make(map[string]float64, len(p.TagWeights))
		for tag, w := range p.TagWeights {
			tags[tag] = float64(w)
		}
		out[id] = RawProfile{
			UserTags:            tags,
			ProductsViewed:      append([]string{}, p.ViewedItems...),
			AveragePrice:        p.AveragePrice,
			LowestPrice:         p.LowestPrice,
			HighestPrice:        p.HighestPrice,
			ForeignTripCount:    p.ForeignTripCount,
			NonForeignTripCount: p.NonForeignTripCount,
		}
	}
	return out
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ReadFile 读取画像文件（JSON，扩展名为 .yaml/.yml 时按 YAML 解析）
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read user profile file: %w", err)
	}

	var doc profileDocument
	if isYAML(path) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &model.DataFormatError{Source: path, Reason: "unparseable profile document", Err: err}
	}
	if doc.UserAnalysis == nil {
		return nil, &model.DataFormatError{Source: path, Reason: "missing user_analysis section"}
	}
	return toSnapshot(doc.UserAnalysis), nil
}

// LoadFile 读取画像文件并构造 Store
func LoadFile(path string) (*Store, error) {
	snap, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := NewStore()
	s.Restore(snap)
	return s, nil
}

// SaveFile 原子地写出快照：先写临时文件再 rename
func SaveFile(path string, snap Snapshot) error {
	doc := profileDocument{UserAnalysis: fromSnapshot(snap)}

	var buf bytes.Buffer
	if isYAML(path) {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode profiles: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode profiles: %w", err)
		}
	} else {
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode profiles: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".profiles-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace profile file: %w", err)
	}
	return nil
}
