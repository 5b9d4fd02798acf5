package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate 校验跨字段约束，并补全可推断的缺省值
//
// 只配置了一个提供商时，default_provider 不存在于列表中会改指向它。
func (c *Config) Validate() error {
	var errs []error

	names := make([]string, 0, len(c.LLM.Providers))
	for name, p := range c.LLM.Providers {
		names = append(names, name)
		switch p.Type {
		case "openai", "anthropic":
		default:
			errs = append(errs, fmt.Errorf("llm.providers.%s.type: unsupported %q", name, p.Type))
		}
		if p.Timeout < 0 {
			errs = append(errs, fmt.Errorf("llm.providers.%s.timeout: must not be negative", name))
		}
	}
	if _, ok := c.LLM.Providers[c.LLM.DefaultProvider]; !ok && len(names) > 0 {
		if len(names) == 1 {
			c.LLM.DefaultProvider = names[0]
		} else {
			sort.Strings(names)
			errs = append(errs, fmt.Errorf("llm.default_provider: %q not in %v", c.LLM.DefaultProvider, names))
		}
	}

	if c.Security.JWT.Enabled && c.Security.JWT.Secret == "" {
		errs = append(errs, errors.New("security.jwt.secret: required when jwt is enabled"))
	}
	if c.Generation.SubscriberBuffer < 0 {
		errs = append(errs, errors.New("generation.subscriber_buffer: must not be negative"))
	}
	if c.Generation.SSESendTimeout < 0 {
		errs = append(errs, errors.New("generation.sse_send_timeout: must not be negative"))
	}
	return errors.Join(errs...)
}
