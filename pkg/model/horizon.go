package model

import (
	"fmt"
	"strconv"
	"time"
)

// Day 排班周期内的一天
// Index 为周期内偏移（0 起），DayOfYear 为年内序号（1..366）。
// 周期可跨年（start=360, end=10），约束逻辑只使用 Index，
// 日历信息（星期、周序号）在构造时一次性解析完毕。
type Day struct {
	Index     int          `json:"index"`
	DayOfYear int          `json:"day_of_year"`
	Date      time.Time    `json:"date"`
	Weekday   time.Weekday `json:"weekday"`
	CalWeek   int          `json:"cal_week"` // 周一至周日的日历周序号（相对周期首日所在周）
	Weekend   bool         `json:"weekend"`
}

// Horizon 排班周期
type Horizon struct {
	Year     int   `json:"year"`
	StartDay int   `json:"start_day"`
	EndDay   int   `json:"end_day"`
	Days     []Day `json:"days"`
}

// NewHorizon 构造排班周期并解析日历
// start > end 表示跨年：start..年末 属于 year，1..end 属于 year+1。
func NewHorizon(year, startDay, endDay int) (*Horizon, error) {
	if startDay < 1 || startDay > 366 || endDay < 1 || endDay > 366 {
		return nil, fmt.Errorf("日序号必须在 [1, 366] 内: start=%d end=%d", startDay, endDay)
	}

	var dayNums []int
	var years []int
	if startDay <= endDay {
		if endDay > daysInYear(year) {
			return nil, fmt.Errorf("日序号 %d 超出 %d 年的天数", endDay, year)
		}
		for d := startDay; d <= endDay; d++ {
			dayNums = append(dayNums, d)
			years = append(years, year)
		}
	} else {
		last := daysInYear(year)
		if startDay > last {
			return nil, fmt.Errorf("日序号 %d 超出 %d 年的天数", startDay, year)
		}
		for d := startDay; d <= last; d++ {
			dayNums = append(dayNums, d)
			years = append(years, year)
		}
		for d := 1; d <= endDay; d++ {
			dayNums = append(dayNums, d)
			years = append(years, year+1)
		}
	}

	h := &Horizon{Year: year, StartDay: startDay, EndDay: endDay}
	firstDate := dateOfYearDay(years[0], dayNums[0])
	firstMonday := mondayOnOrBefore(firstDate)

	for i, num := range dayNums {
		date := dateOfYearDay(years[i], num)
		wd := date.Weekday()
		h.Days = append(h.Days, Day{
			Index:     i,
			DayOfYear: num,
			Date:      date,
			Weekday:   wd,
			CalWeek:   int(date.Sub(firstMonday).Hours()) / (24 * 7),
			Weekend:   wd == time.Saturday || wd == time.Sunday,
		})
	}
	return h, nil
}

// Len 返回周期天数
func (h *Horizon) Len() int {
	return len(h.Days)
}

// Label 返回第 i 天在响应中的键（年内序号的字符串形式）
func (h *Horizon) Label(i int) string {
	return strconv.Itoa(h.Days[i].DayOfYear)
}

// IndexOfDayNumber 由年内序号反查周期内偏移，找不到返回 -1
func (h *Horizon) IndexOfDayNumber(num int) int {
	for _, d := range h.Days {
		if d.DayOfYear == num {
			return d.Index
		}
	}
	return -1
}

// CalWeekCount 返回覆盖到的日历周个数
func (h *Horizon) CalWeekCount() int {
	if len(h.Days) == 0 {
		return 0
	}
	return h.Days[len(h.Days)-1].CalWeek + 1
}

// daysInYear 返回某年的天数
func daysInYear(year int) int {
	if isLeapYear(year) {
		return 366
	}
	return 365
}

// isLeapYear 判断闰年
func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// dateOfYearDay 由年份和年内序号构造日期
func dateOfYearDay(year, dayOfYear int) time.Time {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, dayOfYear-1)
}

// mondayOnOrBefore 返回不晚于给定日期的周一
func mondayOnOrBefore(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // 周一=0 ... 周日=6
	return t.AddDate(0, 0, -offset)
}
