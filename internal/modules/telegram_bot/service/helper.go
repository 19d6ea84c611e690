package service

import (
	"math"
	"strconv"
	"strings"

	"hybrid_bot/internal/models"
)

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

// parseFloat понимает и запятую.
func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseAlertKind(s string) (models.AlertKind, bool) {
	switch k := models.AlertKind(strings.ToLower(s)); k {
	case models.AlertDip, models.AlertBreakout:
		return k, true
	}
	return "", false
}

func joinOrNone(list []string) string {
	if len(list) == 0 {
		return "(none)"
	}
	return strings.Join(list, ", ")
}
