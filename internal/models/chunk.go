package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// chunkDelimiter separates the original file key from the chunk index in
// the Source field of chunked documents.
const chunkDelimiter = "#chunk_"

// partTitleRe matches the "(Part i/n)" suffix on chunk titles.
var partTitleRe = regexp.MustCompile(`^(.*) \(Part (\d+)/(\d+)\)$`)

// ChunkInfo is the structured form of the chunk naming convention. It is
// derived once when a point is read back from the index; downstream logic
// (reconciler, deletion) uses this instead of re-parsing strings.
type ChunkInfo struct {
	IsChunk     bool
	ChunkIndex  int
	TotalChunks int
	// ParentFile is the undecorated logical file name.
	ParentFile string
	// ParentKey is the original file key recovered from Source, or "" when
	// only the name is known.
	ParentKey string
}

// ChunkSource returns the Source value for chunk i of the file with the
// given origin key.
func ChunkSource(key string, i int) string {
	return fmt.Sprintf("%s%s%d", key, chunkDelimiter, i)
}

// ChunkTitle returns the decorated title for chunk i (0-based) of n.
func ChunkTitle(fileName string, i, n int) string {
	return fmt.Sprintf("%s (Part %d/%d)", fileName, i+1, n)
}

// Chunk normalizes the document's chunk markers into a ChunkInfo.
// Explicit metadata wins; the Source "#chunk_" convention and the
// "(Part i/n)" title suffix are recognized for points written by older
// producers that did not populate metadata.
func (d *VectorDocument) Chunk() ChunkInfo {
	if d.Metadata.IsChunk {
		info := ChunkInfo{
			IsChunk:     true,
			ChunkIndex:  d.Metadata.ChunkIndex,
			TotalChunks: d.Metadata.TotalChunks,
			ParentFile:  d.Metadata.ParentFile,
			ParentKey:   parentKeyFromSource(d.Source),
		}
		if info.ParentFile == "" {
			info.ParentFile = d.FileName
		}
		return info
	}
	if key, idx, ok := parseChunkSource(d.Source); ok {
		info := ChunkInfo{IsChunk: true, ChunkIndex: idx, ParentKey: key, ParentFile: d.FileName}
		if name, _, n, ok := parseChunkTitle(d.Title); ok {
			info.TotalChunks = n
			if info.ParentFile == "" {
				info.ParentFile = name
			}
		}
		return info
	}
	if name, idx, n, ok := parseChunkTitle(d.Title); ok {
		info := ChunkInfo{IsChunk: true, ChunkIndex: idx - 1, TotalChunks: n, ParentFile: name}
		if d.FileName != "" {
			info.ParentFile = d.FileName
		}
		return info
	}
	return ChunkInfo{ParentFile: d.FileName}
}

func parentKeyFromSource(source string) string {
	if key, _, ok := parseChunkSource(source); ok {
		return key
	}
	return ""
}

func parseChunkSource(source string) (key string, index int, ok bool) {
	pos := strings.LastIndex(source, chunkDelimiter)
	if pos < 0 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(source[pos+len(chunkDelimiter):])
	if err != nil {
		return "", 0, false
	}
	return source[:pos], idx, true
}

func parseChunkTitle(title string) (name string, part, total int, ok bool) {
	m := partTitleRe.FindStringSubmatch(title)
	if m == nil {
		return "", 0, 0, false
	}
	part, err1 := strconv.Atoi(m[2])
	total, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil {
		return "", 0, 0, false
	}
	return m[1], part, total, true
}
