package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates TXT records for a device.
func EncodeTXT(info DeviceInfo) TXTRecordMap {
	txt := TXTRecordMap{TXTKeyDeviceID: info.DeviceID}
	if info.Protocol != "" {
		txt[TXTKeyProtocol] = info.Protocol
	}
	if info.Priority != 0 {
		txt[TXTKeyPriority] = strconv.Itoa(info.Priority)
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	return txt
}

// DecodeTXT parses TXT records published by a device.
func DecodeTXT(txt TXTRecordMap) (DeviceInfo, error) {
	var info DeviceInfo

	id, ok := txt[TXTKeyDeviceID]
	if !ok || id == "" {
		return info, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceID)
	}
	info.DeviceID = id
	info.Protocol = txt[TXTKeyProtocol]
	info.Name = txt[TXTKeyName]

	if s, ok := txt[TXTKeyPriority]; ok {
		prio, err := strconv.Atoi(s)
		if err != nil {
			return info, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
		}
		info.Priority = prio
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
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
