package dispatch

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// ApplyFilter narrows and transforms an already-parsed JSON response body.
// Filter runs first (e.g. items[?status=='active']), then query selects or
// reshapes fields (e.g. [].name). Empty expressions are skipped; non-JSON
// bodies (plain strings) are returned unchanged when both are empty and
// rejected otherwise, since JMESPath needs structured data.
func ApplyFilter(body any, filter, query string) (any, error) {
	if filter == "" && query == "" {
		return body, nil
	}

	result := body
	if filter != "" {
		filtered, err := searchJMESPath(result, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to apply filter: %w", err)
		}
		result = filtered
	}

	if query != "" {
		queried, err := searchJMESPath(result, query)
		if err != nil {
			return nil, fmt.Errorf("failed to apply query: %w", err)
		}
		result = queried
	}

	return result, nil
}

func searchJMESPath(data any, expression string) (any, error) {
	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression %q: %w", expression, err)
	}
	result, err := jp.Search(data)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed: %w", err)
	}
	return result, nil
}

// IsValidJMESPath checks if an expression is valid JMESPath syntax.
func IsValidJMESPath(expression string) bool {
	_, err := jmespath.Compile(expression)
	return err == nil
}
