package sqlgen

import (
	"errors"
	"strings"
)

// ErrNoSQLBlock is returned when a model response carries no fenced
// ```sql block to extract.
var ErrNoSQLBlock = errors.New("no sql block in model response")

const sqlFenceOpen = "```sql"

// ExtractSQL pulls the statement out of the first ```sql fence in the
// response. Text after the opening fence up to the last closing ``` is
// taken verbatim; a missing closing fence keeps the remainder of the
// response.
func ExtractSQL(response string) (string, error) {
	start := strings.Index(response, sqlFenceOpen)
	if start == -1 {
		return "", ErrNoSQLBlock
	}
	body := response[start+len(sqlFenceOpen):]
	if end := strings.LastIndex(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body), nil
}
