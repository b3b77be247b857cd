package payload

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const propertiesFileName = "payload_properties.txt"

// ReadProperties best-effort parses the payload_properties.txt sibling
// of payloadPath (spec §4.4). Absence or any read failure is non-fatal:
// it returns nil, never an error, matching the contract that inspection
// must still succeed without this file.
func ReadProperties(payloadPath string) *Properties {
	sibling := filepath.Join(filepath.Dir(payloadPath), propertiesFileName)

	f, err := os.Open(sibling)
	if err != nil {
		Logger.Printf("no sibling properties file at %s: %v", sibling, err)
		return nil
	}
	defer f.Close()

	props := &Properties{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "FILE_HASH":
			props.FileHash = value
		case "FILE_SIZE":
			if n, err := strconv.ParseUint(value, 10, 64); err == nil {
				props.FileSize = n
			}
		case "METADATA_HASH":
			props.MetadataHash = value
		case "METADATA_SIZE":
			if n, err := strconv.ParseUint(value, 10, 64); err == nil {
				props.MetadataSize = n
			}
		}
	}

	return props
}
