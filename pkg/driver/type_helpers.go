package driver

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// TypeConversionError reports a database value of an unexpected type.
type TypeConversionError struct {
	Expected string
	Actual   string
	Field    string
}

func (e *TypeConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("type conversion error for field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("type conversion error: expected %s, got %s", e.Expected, e.Actual)
}

func conversionError(expected string, v any, field string) *TypeConversionError {
	actual := "nil"
	if v != nil {
		actual = fmt.Sprintf("%T", v)
	}
	return &TypeConversionError{Expected: expected, Actual: actual, Field: field}
}

// recordNode reads a node column of a result record.
func recordNode(rec *db.Record, key string) (dbtype.Node, error) {
	v, _ := rec.Get(key)
	node, ok := v.(dbtype.Node)
	if !ok {
		return dbtype.Node{}, conversionError("dbtype.Node", v, key)
	}
	return node, nil
}

// recordInt64 reads an integer column of a result record.
func recordInt64(rec *db.Record, key string) (int64, error) {
	v, _ := rec.Get(key)
	n, ok := v.(int64)
	if !ok {
		return 0, conversionError("int64", v, key)
	}
	return n, nil
}

// recordString reads a string column of a result record. Null reads as "".
func recordString(rec *db.Record, key string) (string, error) {
	v, _ := rec.Get(key)
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", conversionError("string", v, key)
	}
	return s, nil
}

// recordList reads a list column of a result record. Null reads as empty.
func recordList(rec *db.Record, key string) ([]any, error) {
	v, _ := rec.Get(key)
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, conversionError("[]any", v, key)
	}
	return list, nil
}
