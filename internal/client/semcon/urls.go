package semcon

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Locator addresses a record by DRI when set, else by ID.
type Locator struct {
	ID  int64
	DRI string
}

func (l Locator) query() url.Values {
	v := url.Values{}
	if l.DRI != "" {
		v.Set("dri", l.DRI)
	} else if l.ID != 0 {
		v.Set("id", strconv.FormatInt(l.ID, 10))
	}
	return v
}

// ListOptions shape a multi-record read.
type ListOptions struct {
	Schema   string
	Format   string
	Page     int
	PageSize int
	All      bool
}

func (o ListOptions) query() url.Values {
	v := url.Values{}
	if o.Schema != "" {
		v.Set("schema", o.Schema)
	}
	if o.Format != "" {
		v.Set("f", o.Format)
	}
	if o.All {
		v.Set("page", "all")
	} else if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		v.Set("items", strconv.Itoa(o.PageSize))
	}
	return v
}

func (c *Client) url(path string, query url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	if len(query) == 0 {
		return base + path
	}
	return fmt.Sprintf("%s%s?%s", base, path, query.Encode())
}
