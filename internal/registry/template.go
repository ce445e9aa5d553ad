package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/georgisalene/gnss-rt/internal/gnsstime"
)

// ExpandTemplate substitutes the date placeholders of an address template for
// the given epoch:
//
//	{yyyy} four digit year     {yy} two digit year
//	{ddd}  day of year         {wwww} GPS week
//	{d}    GPS day of week     {hh} hour of day
//	{ha}   hour alpha (a-x)    {mm} minute of hour
//	{mon}  month of year
//
// Unknown braces are left untouched so provider-literal braces survive.
func ExpandTemplate(template string, t time.Time) string {
	t = t.UTC()
	week, dow := gnsstime.GPSWeek(t)
	ha, err := gnsstime.HourAlpha(t.Hour())
	if err != nil {
		ha = "a"
	}

	r := strings.NewReplacer(
		"{yyyy}", fmt.Sprintf("%04d", t.Year()),
		"{yy}", fmt.Sprintf("%02d", t.Year()%100),
		"{ddd}", fmt.Sprintf("%03d", gnsstime.DOY(t)),
		"{wwww}", fmt.Sprintf("%04d", week),
		"{d}", fmt.Sprintf("%d", dow),
		"{hh}", fmt.Sprintf("%02d", t.Hour()),
		"{ha}", ha,
		"{mm}", fmt.Sprintf("%02d", t.Minute()),
		"{mon}", fmt.Sprintf("%02d", int(t.Month())),
	)
	return r.Replace(template)
}
