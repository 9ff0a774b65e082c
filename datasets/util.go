package datasets

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// maxLineBytes bounds a single line of the formula/index/vocabulary files.
// Real im2latex formulas reach a few KB; 1MB leaves plenty of headroom.
const maxLineBytes = 1 << 20

// readLines reads a whole line-oriented file into memory, one entry per line,
// without any trimming.
func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

// parseIndexLine splits one index-file line into its image filename and
// formula ID. Lines are whitespace separated with exactly two fields; no
// quoting or escaping is supported.
func parseIndexLine(line string, lineNum int) (imageName string, formulaID int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", 0, fmt.Errorf("index line %d: expected 2 fields, got %d", lineNum, len(fields))
	}
	formulaID, err = strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("index line %d: formula ID %q is not an integer: %w", lineNum, fields[1], err)
	}
	return fields[0], formulaID, nil
}
