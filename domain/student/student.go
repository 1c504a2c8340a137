// Package student 定义学生记录及其在请求边界上的解码与校验。
//
// Student 不包含标识符，ID 由存储在创建时分配，只在响应中与记录字段组合输出。
package student

import (
	"bytes"
	"encoding/json"

	"studentdb/domain"
	"studentdb/errors"
	"studentdb/validation"
)

// 字段名（与快照文件及 HTTP 载荷保持一致）
const (
	FieldName       = "name"
	FieldEmail      = "email"
	FieldAge        = "age"
	FieldRollNumber = "Roll_number"
	FieldCourse     = "course"
)

// ErrNotFoundMessage 未找到时对外暴露的提示
const ErrNotFoundMessage = "Student not found"

// Student 学生记录（不含 ID）
//
// email 与 Roll_number 不做唯一性约束。
type Student struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Age        int    `json:"age"`
	RollNumber int    `json:"Roll_number"`
	Course     string `json:"course"`
}

// Entry ID 与记录的组合，序列化为 {id, ...Student}
type Entry struct {
	ID int64 `json:"id"`
	Student
}

// GetID 实现 domain.IObject
func (e Entry) GetID() int64 { return e.ID }

var _ domain.IObject[int64] = Entry{}

// NewEntry 组合 ID 与记录
func NewEntry(id int64, s Student) Entry {
	return Entry{ID: id, Student: s}
}

// NotFound 构造携带 ID 的未找到错误
func NotFound(id int64) error {
	return domain.NewNotFoundError(ErrNotFoundMessage, id)
}

// Decode 从请求体解析完整记录
//
// 所有字段必填，类型必须与 JSON 类型严格匹配；未知字段忽略。
// 失败时返回 ErrCodeValidation 错误，details.fields 列出每个出错字段。
func Decode(data []byte) (Student, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		var errs validation.Errors
		errs.Add("body", "expected JSON object")
		return Student{}, errs.Err()
	}

	var (
		s    Student
		errs validation.Errors
	)
	decodeString(raw, FieldName, &s.Name, &errs)
	decodeString(raw, FieldEmail, &s.Email, &errs)
	decodeInt(raw, FieldAge, &s.Age, &errs)
	decodeInt(raw, FieldRollNumber, &s.RollNumber, &errs)
	decodeString(raw, FieldCourse, &s.Course, &errs)

	if err := errs.Err(); err != nil {
		return Student{}, err
	}
	return s, nil
}

var jsonNull = []byte("null")

func lookup(raw map[string]json.RawMessage, field string, errs *validation.Errors) (json.RawMessage, bool) {
	v, ok := raw[field]
	validation.RequirePresent(errs, field, ok)
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(v), jsonNull) {
		errs.Add(field, "must not be null")
		return nil, false
	}
	return v, true
}

func decodeString(raw map[string]json.RawMessage, field string, dst *string, errs *validation.Errors) {
	v, ok := lookup(raw, field, errs)
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		errs.Add(field, "expected string")
	}
}

func decodeInt(raw map[string]json.RawMessage, field string, dst *int, errs *validation.Errors) {
	v, ok := lookup(raw, field, errs)
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		errs.Add(field, "expected integer")
	}
}

// IsNotFound 判断是否为学生未找到错误
func IsNotFound(err error) bool {
	return errors.IsNotFound(errors.Normalize(err))
}
