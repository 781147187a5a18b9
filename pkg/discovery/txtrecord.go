package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT builds the TXT records for info.
func EncodeTXT(info *ServiceInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyEnabled: "0",
	}
	if info.Enabled {
		txt[TXTKeyEnabled] = "1"
	}
	if info.Path != "" {
		txt[TXTKeyPath] = info.Path
	}
	if info.State != "" {
		txt[TXTKeyState] = info.State
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	return txt
}

// DecodeTXT parses TXT records into a ServiceInfo. Instance and Port are left
// for the caller, they are not carried in TXT.
func DecodeTXT(txt TXTRecordMap) *ServiceInfo {
	return &ServiceInfo{
		Path:    txt[TXTKeyPath],
		Enabled: txt[TXTKeyEnabled] == "1",
		State:   txt[TXTKeyState],
		Version: txt[TXTKeyVersion],
	}
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings, sorted
// by key.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
