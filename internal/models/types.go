package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
)

// JsonNullString 是一個 sql.NullString 的包裝類型，用於自訂 JSON (un)marshalling。
type JsonNullString struct {
	sql.NullString
}

// NewJsonNullString 空字串視為 NULL
func NewJsonNullString(s string) JsonNullString {
	return JsonNullString{NullString: sql.NullString{String: s, Valid: s != ""}}
}

func (jns JsonNullString) MarshalJSON() ([]byte, error) {
	if !jns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jns.String)
}

func (jns *JsonNullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jns.String, jns.Valid = "", false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		jns.String, jns.Valid = "", false
		return fmt.Errorf("JsonNullString: 期望 JSON 字串或 null，但得到 '%s': %w", string(data), err)
	}
	jns.String, jns.Valid = s, true
	return nil
}

// JsonNullScore 包裝 sql.NullFloat64 的品質分數。NULL 代表「尚未評分」，不等於 0 分。
type JsonNullScore struct {
	sql.NullFloat64
}

// NewScore 建立一個有效分數，保留一位小數
func NewScore(v float64) JsonNullScore {
	return JsonNullScore{NullFloat64: sql.NullFloat64{Float64: math.Round(v*10) / 10, Valid: true}}
}

func (s JsonNullScore) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Float64)
}

func (s *JsonNullScore) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		s.Float64, s.Valid = 0, false
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		s.Float64, s.Valid = 0, false
		return fmt.Errorf("JsonNullScore: 期望數字或 null，但得到 '%s': %w", string(data), err)
	}
	s.Float64, s.Valid = v, true
	return nil
}

// Ptr 尚未評分時回傳 nil
func (s JsonNullScore) Ptr() *float64 {
	if !s.Valid {
		return nil
	}
	v := s.Float64
	return &v
}
