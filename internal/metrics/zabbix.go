package metrics

import (
	"github.com/bytedance/sonic"
)

// discoveryMacro is the low-level discovery macro holding a group name.
const discoveryMacro = "{#NAME}"

type discoveryDocument struct {
	Data []map[string]string `json:"data"`
}

// ZabbixDiscovery renders the worker groups as a Zabbix low-level discovery document.
func ZabbixDiscovery(usage MemoryUsage) ([]byte, error) {
	names := usage.GroupNames()
	doc := discoveryDocument{Data: make([]map[string]string, 0, len(names))}

	for _, name := range names {
		doc.Data = append(doc.Data, map[string]string{discoveryMacro: name})
	}

	return sonic.Marshal(doc)
}
