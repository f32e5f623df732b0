package common

import (
	"fmt"
	"strconv"
	"strings"
)

// Compare 定义记录之间的全序，返回值约定同 strings.Compare
type Compare func(a, b string) int

// Lexical 按字节序比较，是默认排序
func Lexical(a, b string) int {
	return strings.Compare(a, b)
}

// Numeric 按整数值比较；任一侧不是整数时退回字节序。
// 数值相等但写法不同（"1"、"01"、"+1"）时按字节序区分，它们是不同的记录
func Numeric(a, b string) int {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// CompareByName 解析配置中的排序名称
func CompareByName(name string) (Compare, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lexical":
		return Lexical, nil
	case "numeric":
		return Numeric, nil
	}
	return nil, &InvalidConfigError{Field: "order", Reason: fmt.Sprintf("unknown order %q", name)}
}

// WordCount 是 Top-K 结果中的一项
type WordCount struct {
	Word  string
	Count int64
}

// String 方便调试打印
func (wc WordCount) String() string {
	return fmt.Sprintf("%s\t%d", wc.Word, wc.Count)
}
