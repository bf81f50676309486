package algo

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLineFlags decodes "line=flag" pairs separated by ';', as found in ncloc_data.
// A flag of 1 marks the line as set. Empty input yields an empty map.
func ParseLineFlags(data string) (map[int]bool, error) {
	flags := make(map[int]bool)
	for pair := range strings.SplitSeq(data, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid line flag %q", pair)
		}
		line, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || line < 1 {
			return nil, fmt.Errorf("invalid line number in %q", pair)
		}
		flag, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid flag in %q", pair)
		}
		flags[line] = flag == 1
	}
	return flags, nil
}
