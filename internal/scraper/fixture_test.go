package scraper

import (
	"fmt"
	"strings"
)

type fixtureRow struct {
	id      int
	school  string
	major   string
	degree  string
	added   string
	status  string
	badges  []string
	comment string
}

// listingPage renders rows the way the upstream results table lays them out.
func listingPage(rows ...fixtureRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="tw-min-w-full"><thead><tr><th>School</th><th>Program</th><th>Added</th><th>Decision</th></tr></thead><tbody>`)
	for _, r := range rows {
		fmt.Fprintf(&b, `<tr>
<td><div class="tw-font-medium">%s</div></td>
<td><div class="tw-text-gray-900"><span>%s</span><svg></svg><span>%s</span></div></td>
<td>%s</td>
<td><div class="tw-inline-flex tw-items-center tw-rounded-full">%s</div></td>
<td><a href="/result/%d">See more</a></td>
</tr>`, r.school, r.major, r.degree, r.added, r.status, r.id)
		if len(r.badges) > 0 {
			b.WriteString(`<tr class="tw-border-none"><td colspan="5"><div class="tw-flex">`)
			for _, badge := range r.badges {
				fmt.Fprintf(&b, `<div class="tw-inline-flex tw-items-center tw-rounded-md tw-px-2">%s</div>`, badge)
			}
			b.WriteString(`</div></td></tr>`)
		}
		if r.comment != "" {
			fmt.Fprintf(&b, `<tr class="tw-border-none"><td colspan="5"><p class="tw-text-gray-500 tw-text-sm">%s</p></td></tr>`, r.comment)
		}
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}
