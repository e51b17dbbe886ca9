package iso20022

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// JSONToXML renders a message document as ISO 20022-style XML. Keys
// prefixed with "@" become attributes. This is a minimal, non-namespace-
// aware serialiser sufficient for the fixed shapes in this package; it is
// not a general XML library.
func JSONToXML(doc interface{}, rootName string) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshaling document: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", fmt.Errorf("remarshaling document: %w", err)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	if root, ok := m[rootName]; ok {
		writeXML(&b, rootName, root)
	} else {
		b.WriteString("<" + rootName + ">")
		for _, k := range sortedKeys(m) {
			writeXML(&b, k, m[k])
		}
		b.WriteString("</" + rootName + ">")
	}
	return b.String(), nil
}

func writeXML(b *strings.Builder, key string, value interface{}) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		b.WriteString("<" + key + ">" + escapeXML(v) + "</" + key + ">")
	case float64:
		b.WriteString("<" + key + ">" + trimFloat(v) + "</" + key + ">")
	case bool:
		b.WriteString(fmt.Sprintf("<%s>%t</%s>", key, v, key))
	case []interface{}:
		for _, item := range v {
			writeXML(b, key, item)
		}
	case map[string]interface{}:
		var attrs, children []string
		for _, k := range sortedKeys(v) {
			if strings.HasPrefix(k, "@") {
				attrs = append(attrs, fmt.Sprintf("%s=%q", k[1:], escapeXML(fmt.Sprint(v[k]))))
			} else {
				children = append(children, k)
			}
		}
		b.WriteString("<" + key)
		if len(attrs) > 0 {
			b.WriteString(" " + strings.Join(attrs, " "))
		}
		b.WriteString(">")
		for _, k := range children {
			writeXML(b, k, v[k])
		}
		b.WriteString("</" + key + ">")
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

var xmlTag = regexp.MustCompile(`<([^>\s/]+)([^>]*)>([^<]*)</[^>]+>`)
var xmlAttr = regexp.MustCompile(`(\w+)=["']([^"']+)["']`)

// XMLToJSON converts trivial single-level XML into a map. Namespace
// prefixes are stripped, attributes become "@"-prefixed keys. Sufficient
// only for flat acknowledgement payloads; nested documents travel as JSON
// on this network.
func XMLToJSON(xml string) map[string]interface{} {
	out := map[string]interface{}{}
	for _, m := range xmlTag.FindAllStringSubmatch(xml, -1) {
		tag, attrs, text := m[1], m[2], strings.TrimSpace(m[3])
		if i := strings.Index(tag, ":"); i >= 0 {
			tag = tag[i+1:]
		}
		if strings.TrimSpace(attrs) != "" {
			entry := map[string]interface{}{"_": text}
			for _, am := range xmlAttr.FindAllStringSubmatch(attrs, -1) {
				entry["@"+am[1]] = am[2]
			}
			out[tag] = entry
		} else {
			out[tag] = text
		}
	}
	return out
}
