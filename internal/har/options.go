package har

// ConvertOptions controls which entries become request templates.
type ConvertOptions struct {
	// IncludeHosts keeps only these hosts (empty = all hosts)
	IncludeHosts []string
	// ExcludeHosts drops these hosts
	ExcludeHosts []string
	// IncludeMethods keeps only these methods (empty = all methods)
	IncludeMethods []string
	// ExcludeStatic drops static assets (.js, .css, images, fonts)
	ExcludeStatic bool
	// IncludeHeaders copies recorded request headers into the template
	IncludeHeaders bool
}

// DefaultOptions returns ConvertOptions with sensible defaults.
func DefaultOptions() ConvertOptions {
	return ConvertOptions{
		ExcludeStatic:  true,
		IncludeHeaders: true,
	}
}

// WithFilter returns a copy of o restricted to the given hosts and methods.
// Empty slices leave the corresponding filter unchanged.
func (o ConvertOptions) WithFilter(hosts, methods []string) ConvertOptions {
	if len(hosts) > 0 {
		o.IncludeHosts = hosts
	}
	if len(methods) > 0 {
		o.IncludeMethods = methods
	}
	return o
}
