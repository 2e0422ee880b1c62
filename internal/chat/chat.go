// Package chat is a placeholder for a future assistant integration. The
// route exists so the dashboard UI has a stable contract; the reply is a
// canned string with no external call behind it.
package chat

import "fmt"

// StartChat answers a dashboard chat query synchronously and
// deterministically, echoing the query verbatim.
func StartChat(query string) string {
	return fmt.Sprintf("Chat assistant is not connected yet. You asked: %q", query)
}
