package overpass

import "fmt"

// DefaultQueryTimeout is the server-side timeout, in seconds, embedded in queries.
const DefaultQueryTimeout = 60

// RelationQuery builds the Overpass QL payload that returns a relation, its
// members recursed down to nodes, and inline geometry for every way.
func RelationQuery(relationID int64, timeoutSecs int) string {
	if timeoutSecs <= 0 {
		timeoutSecs = DefaultQueryTimeout
	}
	return fmt.Sprintf("[out:json][timeout:%d];\nrelation(%d);\n(._;>;);\nout geom;\n", timeoutSecs, relationID)
}
