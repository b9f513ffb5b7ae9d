package registry

import (
	"sort"

	"combokit/internal/dedup"
	"combokit/internal/fingerprint"
	"combokit/pkg/contract"
	"combokit/plugins/transform/domain"
	"combokit/plugins/transform/fields"
	"combokit/plugins/transform/phone"
)

// NewTransform 工厂签名：逐行变换无配置项。
type NewTransform func() contract.LineTransform

// NewStrategy 工厂签名：接收指纹阶段的并行参数。
type NewStrategy func(scan fingerprint.ScanOptions) dedup.Strategy

// Transform 工厂注册表（显式、零反射）。
var Transform = map[string]NewTransform{
	// domain: user@host:pass → user:pass
	domain.Name: func() contract.LineTransform { return domain.New() },
	"login":     func() contract.LineTransform { return fields.New(fields.Login) },
	"password":  func() contract.LineTransform { return fields.New(fields.Password) },
	"phone":     func() contract.LineTransform { return phone.New() },
}

// TaskTransform 记录逐行变换任务所用的变换名。
var TaskTransform = map[contract.Task]string{
	contract.TaskRemoveDomains:    domain.Name,
	contract.TaskExtractLogins:    "login",
	contract.TaskExtractPasswords: "password",
	contract.TaskExtractPhones:    "phone",
}

// Strategy 去重策略注册表。
var Strategy = map[string]NewStrategy{
	dedup.NameMemory: func(fingerprint.ScanOptions) dedup.Strategy { return dedup.MemorySet{} },
	dedup.NameSort:   func(fingerprint.ScanOptions) dedup.Strategy { return dedup.SortUnique{} },
	dedup.NameStream: func(scan fingerprint.ScanOptions) dedup.Strategy { return dedup.Stream{Scan: scan} },
}

// TransformFor 返回任务对应的变换；非逐行变换任务返回 ok=false。
func TransformFor(t contract.Task) (contract.LineTransform, bool) {
	name, ok := TaskTransform[t]
	if !ok {
		return nil, false
	}
	f := Transform[name]
	if f == nil {
		return nil, false
	}
	return f(), true
}

// StrategyNames 返回已注册的策略名（字典序）。
func StrategyNames() []string {
	out := make([]string, 0, len(Strategy))
	for k := range Strategy {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
