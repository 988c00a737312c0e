package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeSelfTXT creates TXT records advertising a SelfInfo.
func EncodeSelfTXT(info *SelfInfo) TXTRecordMap {
	txt := make(TXTRecordMap)
	txt[TXTKeyVersion] = info.Version
	txt[TXTKeyEndpoints] = strconv.Itoa(info.EndpointCount)
	txt[TXTKeyQueuedCount] = strconv.Itoa(info.QueuedCount)
	return txt
}

// DecodePeerTXT parses TXT records from a browsed peer into the
// fields PeerInfo carries beyond instance name/host/port/addresses.
func DecodePeerTXT(txt TXTRecordMap) (version string, endpoints, queued int, err error) {
	version, ok := txt[TXTKeyVersion]
	if !ok {
		return "", 0, 0, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}

	if epStr, ok := txt[TXTKeyEndpoints]; ok {
		ep, convErr := strconv.Atoi(epStr)
		if convErr != nil {
			return "", 0, 0, fmt.Errorf("%w: %s", ErrInvalidTXTRecord, TXTKeyEndpoints)
		}
		endpoints = ep
	}

	if qStr, ok := txt[TXTKeyQueuedCount]; ok {
		q, convErr := strconv.Atoi(qStr)
		if convErr != nil {
			return "", 0, 0, fmt.Errorf("%w: %s", ErrInvalidTXTRecord, TXTKeyQueuedCount)
		}
		queued = q
	}

	return version, endpoints, queued, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format zeroconf's Register expects.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a
// TXTRecordMap, the format zeroconf's ServiceEntry.Text carries.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
