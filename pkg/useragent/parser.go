package useragent

import (
	"fmt"
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// OtherFamily is reported when a browser or OS family cannot be identified.
const OtherFamily = "Other"

// Parser wraps the uap-go parser with device type detection
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// DeviceInfo represents parsed device information
type DeviceInfo struct {
	DeviceType string // mobile, desktop, tablet, bot, unknown
	Browser    string // Chrome, Firefox, Safari, etc.
	OS         string // Windows, iOS, Android, etc.
	Raw        string // Original User-Agent string
}

// Label is the compact form stored on click events, e.g. "Chrome on Windows".
func (d *DeviceInfo) Label() string {
	return d.Browser + " on " + d.OS
}

// NewParser creates a parser from a regexes.yaml file. An empty path selects
// the definitions compiled into uap-go.
func NewParser(regexFilePath string, log *zap.Logger) (*Parser, error) {
	if regexFilePath == "" {
		log.Info("User-Agent parser initialized from embedded regexes")
		return &Parser{parser: uaparser.NewFromSaved(), log: log}, nil
	}

	regexBytes, err := os.ReadFile(regexFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regexes file %s: %w", regexFilePath, err)
	}

	parser, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}

	log.Info("User-Agent parser initialized successfully", zap.String("regexes_file", regexFilePath))

	return &Parser{
		parser: parser,
		log:    log,
	}, nil
}

// Describe returns the "<browser> on <os>" label for a raw User-Agent header.
func (p *Parser) Describe(userAgent string) string {
	return p.ParseUserAgent(userAgent).Label()
}

// ParseUserAgent parses a User-Agent string and returns detailed device information
func (p *Parser) ParseUserAgent(userAgent string) *DeviceInfo {
	if userAgent == "" {
		return &DeviceInfo{
			DeviceType: "unknown",
			Browser:    OtherFamily,
			OS:         OtherFamily,
		}
	}

	client := p.parser.Parse(userAgent)

	deviceInfo := &DeviceInfo{
		Browser: family(client.UserAgent.Family),
		OS:      family(client.Os.Family),
		Raw:     userAgent,
	}
	deviceInfo.DeviceType = determineDeviceType(client, userAgent)

	p.log.Debug("parsed User-Agent",
		zap.String("user_agent", userAgent),
		zap.String("device_type", deviceInfo.DeviceType),
		zap.String("browser", deviceInfo.Browser),
		zap.String("os", deviceInfo.OS),
	)

	return deviceInfo
}

var (
	botIndicators = []string{
		"Googlebot", "Bingbot", "Slurp", "DuckDuckBot", "Baiduspider",
		"YandexBot", "facebookexternalhit", "Twitterbot", "LinkedInBot",
		"WhatsApp", "Telegram", "SkypeUriPreview", "bot", "crawler",
		"spider", "scraper",
	}
	mobileDevices = []string{"iPhone", "Android", "BlackBerry", "Windows Phone", "Mobile", "Phone"}
	tabletDevices = []string{"iPad", "Tablet", "Kindle", "Surface"}
	mobileOS      = []string{"iOS", "Android", "Windows Phone", "BlackBerry OS", "Firefox OS", "Sailfish OS"}
	desktopOS     = []string{
		"Windows", "Mac OS X", "macOS", "Linux", "Ubuntu",
		"Chrome OS", "FreeBSD", "OpenBSD", "NetBSD",
	}
)

func determineDeviceType(client *uaparser.Client, userAgent string) string {
	if containsAny(client.UserAgent.Family, botIndicators) || containsAny(userAgent, botIndicators) {
		return "bot"
	}

	deviceFamily := client.Device.Family
	if deviceFamily != "" && deviceFamily != OtherFamily {
		if containsAny(deviceFamily, tabletDevices) {
			return "tablet"
		}
		if containsAny(deviceFamily, mobileDevices) {
			return "mobile"
		}
	}

	osFamily := client.Os.Family
	if containsAny(osFamily, mobileOS) {
		// iPad reports iOS; Android tablets omit "Mobile"
		if contains(osFamily, "iOS") && contains(userAgent, "iPad") {
			return "tablet"
		}
		if contains(osFamily, "Android") && !contains(userAgent, "Mobile") {
			return "tablet"
		}
		return "mobile"
	}

	if containsAny(osFamily, desktopOS) {
		return "desktop"
	}

	return "unknown"
}

// contains is a case-insensitive substring check
func contains(s, substr string) bool {
	if s == "" || substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if contains(s, sub) {
			return true
		}
	}
	return false
}

func family(s string) string {
	if s == "" {
		return OtherFamily
	}
	return s
}
