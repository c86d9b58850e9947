// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

/*
Package device classifies User-Agent strings into structured device profiles.

# Architecture

The classifier is a pure function over the UA string: no I/O, no state, no
failure modes. Classification is heuristic substring and regex matching; an
unrecognized UA degrades to "Unknown" fields rather than an error. The auth
layer binds the resulting profile to a session at login.
*/
package device

import (
	"regexp"
	"strings"

	"github.com/projectbase/idm/internal/auth"
)

// Classifier implements [auth.DeviceClassifier] with an ordered rule set.
type Classifier struct{}

// NewClassifier creates the User-Agent [Classifier].
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Fallback labels for unrecognized agents.
const (
	unknownDevice  = "Unknown Device"
	unknownType    = "Unknown"
	unknownOS      = "Unknown OS"
	unknownBrowser = "Unknown Browser"
)

// Device type labels.
const (
	typeDesktop = "Desktop"
	typeMobile  = "Mobile"
	typeTablet  = "Tablet"
	typeTV      = "Smart TV"
	typeConsole = "Gaming Console"
)

// Classify parses the User-Agent into an [auth.DeviceProfile].
func (classifier *Classifier) Classify(userAgent string) auth.DeviceProfile {
	if strings.TrimSpace(userAgent) == "" {
		return auth.DeviceProfile{
			DeviceType:  unknownType,
			DeviceModel: unknownDevice,
			OSName:      unknownOS,
			BrowserName: unknownBrowser,
			Nickname:    unknownDevice,
		}
	}

	ua := strings.ToLower(userAgent)

	osName := detectOS(ua)
	browser := detectBrowser(ua)
	deviceType := detectDeviceType(ua)

	profile := auth.DeviceProfile{
		DeviceType:     deviceType,
		OSName:         osName,
		OSVersion:      detectOSVersion(ua, osName),
		BrowserName:    browser,
		BrowserVersion: detectBrowserVersion(ua, browser),
		IsBot:          detectBot(ua),
		IsMobile:       deviceType == typeMobile,
		IsTablet:       deviceType == typeTablet,
		IsDesktop:      deviceType == typeDesktop,
	}

	if profile.IsMobile || profile.IsTablet {
		profile.DeviceModel = detectMobileModel(ua, osName)
	} else {
		profile.DeviceModel = detectDesktopModel(ua, osName, browser)
	}
	if profile.DeviceModel == "" || profile.DeviceModel == unknownDevice {
		profile.DeviceModel = strings.TrimSpace(osName + " " + browser)
	}

	profile.Nickname = deviceType + " - " + browser
	return profile
}

// # Operating System

func detectOS(ua string) string {
	switch {
	// Windows Phone must win over the plain "windows nt" check, and iOS
	// devices advertise "like Mac OS X" so they must win over macOS.
	case strings.Contains(ua, "windows phone"):
		return "Windows Phone"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return "iOS"
	case strings.Contains(ua, "windows nt"), strings.Contains(ua, "win64"), strings.Contains(ua, "win32"):
		return "Windows"
	case strings.Contains(ua, "mac os x"), strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "cros"):
		return "Chrome OS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	case strings.Contains(ua, "blackberry"), strings.Contains(ua, "bb10"):
		return "BlackBerry"
	default:
		return unknownOS
	}
}

var (
	windowsVersionRegex = regexp.MustCompile(`windows nt (\d+\.\d+)`)
	macVersionRegex     = regexp.MustCompile(`mac os x (\d+)[_.](\d+)(?:[_.](\d+))?`)
	androidVersionRegex = regexp.MustCompile(`android (\d+(?:\.\d+)*)`)
	iosVersionRegex     = regexp.MustCompile(`(?:cpu )?(?:iphone )?os (\d+)(?:[_.](\d+))?(?:[_.](\d+))?`)
)

// windowsMarketingNames maps the NT kernel version to its marketing name.
var windowsMarketingNames = map[string]string{
	"10.0": "Windows 10/11",
	"6.3":  "Windows 8.1",
	"6.2":  "Windows 8",
	"6.1":  "Windows 7",
	"6.0":  "Windows Vista",
	"5.2":  "Windows XP x64",
	"5.1":  "Windows XP",
}

func detectOSVersion(ua, osName string) string {
	switch osName {
	case "Windows":
		if match := windowsVersionRegex.FindStringSubmatch(ua); match != nil {
			if name, ok := windowsMarketingNames[match[1]]; ok {
				return name
			}
			return "Windows (NT " + match[1] + ")"
		}
	case "macOS":
		if match := macVersionRegex.FindStringSubmatch(ua); match != nil {
			version := "macOS " + match[1] + "." + match[2]
			if match[3] != "" {
				version += "." + match[3]
			}
			return version
		}
	case "Android":
		if match := androidVersionRegex.FindStringSubmatch(ua); match != nil {
			return "Android " + match[1]
		}
	case "iOS":
		if match := iosVersionRegex.FindStringSubmatch(ua); match != nil {
			version := "iOS " + match[1]
			if match[2] != "" {
				version += "." + match[2]
			}
			if match[3] != "" {
				version += "." + match[3]
			}
			return version
		}
	}
	return ""
}

// # Browser
//
// Order matters: every Chromium derivative also advertises "chrome/", so the
// derivatives are checked first.

func detectBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edga/"), strings.Contains(ua, "edgios/"):
		return "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "brave"):
		return "Brave"
	case strings.Contains(ua, "vivaldi"):
		return "Vivaldi"
	case strings.Contains(ua, "yabrowser"):
		return "Yandex Browser"
	case strings.Contains(ua, "samsungbrowser"):
		return "Samsung Internet"
	case strings.Contains(ua, "ucbrowser"), strings.Contains(ua, "ucweb"):
		return "UC Browser"
	case strings.Contains(ua, "chrome/"), strings.Contains(ua, "crios/"):
		return "Chrome"
	case strings.Contains(ua, "safari/") && !strings.Contains(ua, "chrome") && !strings.Contains(ua, "chromium"):
		return "Safari"
	case strings.Contains(ua, "firefox/"), strings.Contains(ua, "fxios/"):
		return "Firefox"
	case strings.Contains(ua, "trident/"), strings.Contains(ua, "msie"):
		return "Internet Explorer"
	case strings.Contains(ua, "electron/"):
		return "Electron"
	default:
		return unknownBrowser
	}
}

// browserVersionRegexes keys on the detected browser name.
var browserVersionRegexes = map[string]*regexp.Regexp{
	"Chrome":            regexp.MustCompile(`chrome/(\d+(?:\.\d+)*)`),
	"Firefox":           regexp.MustCompile(`firefox/(\d+(?:\.\d+)*)`),
	"Safari":            regexp.MustCompile(`version/(\d+(?:\.\d+)*)`),
	"Edge":              regexp.MustCompile(`edg/(\d+(?:\.\d+)*)`),
	"Opera":             regexp.MustCompile(`opr/(\d+(?:\.\d+)*)`),
	"Internet Explorer": regexp.MustCompile(`(?:msie |rv:)(\d+(?:\.\d+)*)`),
	"Brave":             regexp.MustCompile(`brave/(\d+(?:\.\d+)*)`),
	"Vivaldi":           regexp.MustCompile(`vivaldi/(\d+(?:\.\d+)*)`),
	"Yandex Browser":    regexp.MustCompile(`yabrowser/(\d+(?:\.\d+)*)`),
	"Samsung Internet":  regexp.MustCompile(`samsungbrowser/(\d+(?:\.\d+)*)`),
	"UC Browser":        regexp.MustCompile(`ucbrowser/(\d+(?:\.\d+)*)`),
}

func detectBrowserVersion(ua, browser string) string {
	pattern, ok := browserVersionRegexes[browser]
	if !ok {
		return ""
	}
	if match := pattern.FindStringSubmatch(ua); match != nil {
		return match[1]
	}
	return ""
}

// # Device Type

func detectDeviceType(ua string) string {
	mobileHint := strings.Contains(ua, "mobi")

	switch {
	// Tablets first: an Android UA without a mobile hint is a tablet.
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"):
		return typeTablet
	case strings.Contains(ua, "android") && !mobileHint:
		return typeTablet
	case mobileHint,
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "ipod"),
		strings.Contains(ua, "blackberry"),
		strings.Contains(ua, "bb10"),
		strings.Contains(ua, "windows phone"):
		return typeMobile
	case strings.Contains(ua, "windows nt"),
		strings.Contains(ua, "macintosh"),
		strings.Contains(ua, "x11"),
		strings.Contains(ua, "linux"),
		strings.Contains(ua, "cros"):
		return typeDesktop
	case strings.Contains(ua, "smarttv"),
		strings.Contains(ua, "smart-tv"),
		strings.Contains(ua, "googletv"):
		return typeTV
	case strings.Contains(ua, "playstation"),
		strings.Contains(ua, "xbox"),
		strings.Contains(ua, "nintendo"):
		return typeConsole
	default:
		return unknownType
	}
}

// # Device Model

var (
	androidModelRegex = regexp.MustCompile(`android\s[\d.]+;\s*(?:[^);]+;\s*)?([^);]+?)(?:\s+build|;|\))`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// brandPrefixes expands well-known model prefixes into readable brand names.
var brandPrefixes = []struct{ prefix, brand string }{
	{"sm-", "Samsung "},
	{"gt-", "Samsung "},
	{"sch-", "Samsung "},
	{"sgh-", "Samsung "},
	{"lg-", "LG "},
	{"moto", "Motorola"},
	{"pixel", "Google Pixel"},
	{"oneplus", "OnePlus"},
	{"mi ", "Xiaomi Mi "},
	{"redmi", "Xiaomi Redmi"},
	{"poco", "POCO"},
	{"oppo", "OPPO"},
	{"vivo", "Vivo"},
	{"realme", "Realme"},
	{"huawei", "Huawei"},
	{"honor", "Honor"},
	{"asus", "ASUS"},
	{"nokia", "Nokia"},
	{"lenovo", "Lenovo"},
}

func detectMobileModel(ua, osName string) string {
	switch osName {
	case "iOS":
		model := "Unknown iOS Device"
		switch {
		case strings.Contains(ua, "iphone"):
			model = "iPhone"
		case strings.Contains(ua, "ipad"):
			model = "iPad"
		case strings.Contains(ua, "ipod"):
			model = "iPod"
		}
		if version := detectOSVersion(ua, "iOS"); version != "" {
			return model + " (" + version + ")"
		}
		return model

	case "Android":
		version := ""
		if match := androidVersionRegex.FindStringSubmatch(ua); match != nil {
			version = match[1]
		}

		if match := androidModelRegex.FindStringSubmatch(ua); match != nil {
			model := cleanAndroidModel(match[1])
			if model != "" && model != "android" && model != "mobile" {
				if version != "" {
					return model + " (Android " + version + ")"
				}
				return model
			}
		}

		if version != "" {
			return "Android " + version + " Device"
		}
		return "Android Device"

	case "Windows Phone":
		return "Windows Phone Device"
	case "BlackBerry":
		return "BlackBerry Device"
	default:
		return "Mobile Device"
	}
}

func detectDesktopModel(ua, osName, browser string) string {
	switch osName {
	case "Windows":
		if version := detectOSVersion(ua, "Windows"); version != "" {
			return version + " - " + browser
		}
		return "Windows - " + browser
	case "macOS":
		if version := detectOSVersion(ua, "macOS"); version != "" {
			return version + " - " + browser
		}
		return "macOS - " + browser
	case "Linux":
		return detectLinuxDistro(ua) + " - " + browser
	case "Chrome OS":
		return "Chromebook - " + browser
	default:
		return osName + " - " + browser
	}
}

// cleanAndroidModel trims Build suffixes and expands brand prefixes.
func cleanAndroidModel(model string) string {
	model = strings.TrimSpace(model)
	if index := strings.Index(model, "build"); index > 0 {
		model = strings.TrimSpace(model[:index])
	}
	model = whitespaceRegex.ReplaceAllString(model, " ")

	for _, brand := range brandPrefixes {
		if strings.HasPrefix(model, brand.prefix) {
			return brand.brand + strings.TrimSpace(model[len(brand.prefix):])
		}
	}
	return model
}

func detectLinuxDistro(ua string) string {
	switch {
	case strings.Contains(ua, "ubuntu"):
		return "Ubuntu Linux"
	case strings.Contains(ua, "fedora"):
		return "Fedora Linux"
	case strings.Contains(ua, "debian"):
		return "Debian Linux"
	case strings.Contains(ua, "mint"):
		return "Linux Mint"
	case strings.Contains(ua, "manjaro"):
		return "Manjaro Linux"
	case strings.Contains(ua, "arch"):
		return "Arch Linux"
	case strings.Contains(ua, "red hat"), strings.Contains(ua, "rhel"):
		return "Red Hat Linux"
	case strings.Contains(ua, "suse"):
		return "SUSE Linux"
	case strings.Contains(ua, "centos"):
		return "CentOS"
	default:
		return "Linux"
	}
}

// # Bot Detection

var botKeywords = []string{
	"bot", "crawler", "spider", "scraper", "curl", "wget",
	"googlebot", "bingbot", "slurp", "duckduckbot", "baiduspider",
	"yandexbot", "facebookexternalhit", "whatsapp", "telegram",
	"ia_archiver", "archive.org_bot", "semrushbot", "ahrefsbot",
}

func detectBot(ua string) bool {
	for _, keyword := range botKeywords {
		if strings.Contains(ua, keyword) {
			return true
		}
	}
	return false
}
