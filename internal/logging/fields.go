package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ResolveFields 提供数据集解析日志的标准字段，供各层复用。
func ResolveFields(id, tableKey, source string, retries int, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"dataset":   id,
		"table_key": tableKey,
		"source":    source,
		"retries":   retries,
		"cache_hit": cacheHit,
	}
}
