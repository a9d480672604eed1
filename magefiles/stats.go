package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// pkgStats counts the Go lines of one directory.
type pkgStats struct {
	Package string `json:"package"`
	Prod    int    `json:"prod"`
	Test    int    `json:"test"`
}

// Stats prints production and test Go line counts per package as JSON
// lines, then a total.
func Stats() error {
	byDir := map[string]*pkgStats{}

	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch path {
			case "vendor", ".git", binaryDir, "magefiles":
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, countErr := countLines(path)
		if countErr != nil {
			return nil
		}
		dir := filepath.Dir(path)
		s, ok := byDir[dir]
		if !ok {
			s = &pkgStats{Package: dir}
			byDir[dir] = s
		}
		if strings.HasSuffix(path, "_test.go") {
			s.Test += count
		} else {
			s.Prod += count
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	total := pkgStats{Package: "total"}
	for _, dir := range dirs {
		s := byDir[dir]
		total.Prod += s.Prod
		total.Test += s.Test
		if err := printJSONLine(s); err != nil {
			return err
		}
	}
	return printJSONLine(total)
}

func printJSONLine(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
