// Package prefixgen translates a pilot/message-type/date-range selection
// into the s3:// prefixes the scan engine lists, one per 24-hour folder
// boundary crossed between start and end.
package prefixgen

import (
	"fmt"
	"strings"
	"time"
)

const folderLayout = "2006-01-02-15"

// FolderPrefix returns the "pilot/MESSAGETYPE/YYYY/MM/DD/HH" key prefix for
// the hour dt falls in.
func FolderPrefix(pilot, messageType string, dt time.Time) string {
	y, m, d, h := dt.Format(folderLayout), "", "", ""
	parts := strings.Split(y, "-")
	y, m, d, h = parts[0], parts[1], parts[2], parts[3]
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", pilot, strings.ToUpper(messageType), y, m, d, h)
}

// Prefixes walks 24-hour folder boundaries from start to end (exclusive of
// the boundary the end folder starts) and returns one "s3://bucket/..."
// prefix per boundary crossed, in chronological order.
func Prefixes(bucket, pilot, messageType string, start, end time.Time) []string {
	startFolder := FolderPrefix(pilot, messageType, start)
	endFolder := FolderPrefix(pilot, messageType, end)

	var prefixes []string
	curr := start
	currFolder := startFolder
	for currFolder < endFolder {
		prefixes = append(prefixes, fmt.Sprintf("s3://%s/%s", bucket, currFolder))
		curr = curr.Add(24 * time.Hour)
		currFolder = FolderPrefix(pilot, messageType, curr)
	}
	return prefixes
}
