// Package gears derives sun and planet tooth counts for a planetary gearset
// from a gear ratio and a fixed ring gear, and checks that the result can be
// built: whole tooth counts and planets that can be spaced evenly.
package gears
