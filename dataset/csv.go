// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// ValidateId validates user/item id. Id cannot be empty and contain [/,].
func ValidateId(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.NotValidf("empty id")
	} else if strings.Contains(text, "/") {
		return errors.NotValidf("id %q containing `/`", text)
	}
	return nil
}

// ReadLines parse fields of each line for csv file.
func ReadLines(sc *bufio.Scanner, sep string, handler func(int, []string) bool) error {
	lineCount := 0               // line number of current position
	fields := make([]string, 0)  // fields for current line
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	for sc.Scan() {
		lineStr := sc.Text()
		line := []rune(lineStr)
		if quoted {
			builder.WriteString("\r\n")
		}
		for i := 0; i < len(line); i++ {
			if string(line[i]) == sep && !quoted {
				// end of field
				fields = append(fields, builder.String())
				builder.Reset()
			} else if line[i] == '"' {
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						// end of quoted
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					// start of quoted
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
			}
		}
		// end of line
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if !handler(lineCount, fields) {
				return nil
			}
			fields = []string{}
		}
		lineCount++
	}
	return sc.Err()
}

// LoadRatings reads `user<sep>item<sep>rating` rows. Extra columns (e.g. timestamps) are ignored.
func LoadRatings(r io.Reader, sep string, header bool) (Corpus[string, string], error) {
	corpus := make(Corpus[string, string])
	var err error
	readErr := ReadLines(bufio.NewScanner(r), sep, func(i int, fields []string) bool {
		if header && i == 0 {
			return true
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		if len(fields) < 3 {
			err = errors.NotValidf("line %d with %d fields", i+1, len(fields))
			return false
		}
		userId, itemId := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if err = ValidateId(userId); err != nil {
			return false
		}
		if err = ValidateId(itemId); err != nil {
			return false
		}
		var rating float64
		if rating, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err != nil {
			err = errors.Annotatef(err, "line %d", i+1)
			return false
		}
		corpus.Add(userId, itemId, rating)
		return true
	})
	if readErr != nil {
		return nil, errors.Trace(readErr)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return corpus, nil
}

// LoadNames reads `id<sep>name` rows. Later rows replace earlier names of the same id.
func LoadNames(r io.Reader, sep string, header bool) (map[string]string, error) {
	names := make(map[string]string)
	var err error
	readErr := ReadLines(bufio.NewScanner(r), sep, func(i int, fields []string) bool {
		if header && i == 0 {
			return true
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		if len(fields) < 2 {
			err = errors.NotValidf("line %d with %d fields", i+1, len(fields))
			return false
		}
		id := strings.TrimSpace(fields[0])
		if err = ValidateId(id); err != nil {
			return false
		}
		names[id] = strings.TrimSpace(fields[1])
		return true
	})
	if readErr != nil {
		return nil, errors.Trace(readErr)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return names, nil
}
