package ingest

import "fmt"

var sizeSuffixes = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// FormatSize renders a byte count for humans, dividing by 1024 (rounding
// down) while the value exceeds 1024.
func FormatSize(size int64) string {
	i := 0
	for size > 1024 && i < len(sizeSuffixes)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%d %s", size, sizeSuffixes[i])
}
