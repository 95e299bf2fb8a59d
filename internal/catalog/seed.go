package catalog

// DefaultDocument returns the built-in starter catalog: enough weighted
// coverage of the backfilled trait keys that a fresh install generates
// plausible desktop Chrome profiles without any imported dataset.
//
// Weights follow rough desktop market share; GPU renderer options are
// scoped by vendor and timezone options by region so context filtering has
// real data to bite on.
func DefaultDocument() *Document {
	return &Document{
		SchemaVersion:  "1.0",
		CatalogVersion: "0.1.0",
		Categories: []CategoryDoc{
			{
				Name:  "browser",
				Order: 1,
				Traits: []TraitDoc{
					{
						Key:              "browser.userAgent",
						DisplayName:      "User Agent",
						ValueType:        "String",
						DefaultValueJSON: `"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"`,
						DependenciesJSON: `["browser.platform"]`,
					},
					{
						Key:              "browser.platform",
						DisplayName:      "navigator.platform",
						ValueType:        "String",
						DefaultValueJSON: `"Win32"`,
						Options: []OptionDoc{
							{ValueJSON: `"Win32"`, Label: "Windows", Weight: 70},
							{ValueJSON: `"MacIntel"`, Label: "macOS", Weight: 25},
							{ValueJSON: `"Linux x86_64"`, Label: "Linux", Weight: 5},
						},
					},
					{
						Key:         "browser.uach.platform",
						DisplayName: "Sec-CH-UA-Platform",
						ValueType:   "String",
						Options: []OptionDoc{
							{ValueJSON: `"Windows"`, Weight: 70},
							{ValueJSON: `"macOS"`, Weight: 25},
							{ValueJSON: `"Linux"`, Weight: 5},
						},
					},
					{
						Key:              "browser.acceptLanguage",
						DisplayName:      "Accept-Language",
						ValueType:        "String",
						DefaultValueJSON: `"zh-CN,zh;q=0.9,en;q=0.8"`,
						DependenciesJSON: `["system.locale"]`,
					},
				},
			},
			{
				Name:  "system",
				Order: 2,
				Traits: []TraitDoc{
					{
						Key:              "system.locale",
						DisplayName:      "Locale",
						ValueType:        "String",
						DefaultValueJSON: `"zh-CN"`,
						Options: []OptionDoc{
							{ValueJSON: `"zh-CN"`, Weight: 55, Region: ptr("CN")},
							{ValueJSON: `"en-US"`, Weight: 35, Region: ptr("US")},
							{ValueJSON: `"en-GB"`, Weight: 5},
							{ValueJSON: `"ja-JP"`, Weight: 5},
						},
					},
					{
						Key:              "system.timezone",
						DisplayName:      "Timezone",
						ValueType:        "String",
						DependenciesJSON: `["system.locale"]`,
						Options: []OptionDoc{
							{ValueJSON: `"Asia/Shanghai"`, Weight: 55, Region: ptr("CN")},
							{ValueJSON: `"America/New_York"`, Weight: 30, Region: ptr("US")},
							{ValueJSON: `"Europe/London"`, Weight: 10},
							{ValueJSON: `"Asia/Tokyo"`, Weight: 5},
						},
					},
				},
			},
			{
				Name:  "graphics",
				Order: 3,
				Traits: []TraitDoc{
					{
						Key:         "graphics.webgl.vendor",
						DisplayName: "WebGL Vendor",
						ValueType:   "String",
						Options: []OptionDoc{
							{ValueJSON: `"Intel Inc."`, Weight: 50, Vendor: ptr("Intel")},
							{ValueJSON: `"NVIDIA Corporation"`, Weight: 35, Vendor: ptr("NVIDIA")},
							{ValueJSON: `"ATI Technologies Inc."`, Weight: 15, Vendor: ptr("AMD")},
						},
					},
					{
						Key:              "graphics.webgl.renderer",
						DisplayName:      "WebGL Renderer",
						ValueType:        "String",
						DependenciesJSON: `["graphics.webgl.vendor"]`,
						Options: []OptionDoc{
							{ValueJSON: `"Intel(R) UHD Graphics 630"`, Weight: 30, Vendor: ptr("Intel")},
							{ValueJSON: `"Intel(R) Iris(R) Plus Graphics 640"`, Weight: 20, Vendor: ptr("Intel")},
							{ValueJSON: `"NVIDIA GeForce GTX 1650/PCIe/SSE2"`, Weight: 20, Vendor: ptr("NVIDIA")},
							{ValueJSON: `"NVIDIA GeForce RTX 3060/PCIe/SSE2"`, Weight: 15, Vendor: ptr("NVIDIA")},
							{ValueJSON: `"AMD Radeon RX 6600"`, Weight: 15, Vendor: ptr("AMD")},
						},
					},
					{
						Key:              "graphics.canvas.noiseSeed",
						DisplayName:      "Canvas Noise Seed",
						ValueType:        "Number",
						DefaultValueJSON: `0`,
					},
				},
			},
			{
				Name:  "device",
				Order: 4,
				Traits: []TraitDoc{
					{
						Key:              "device.viewport.width",
						DisplayName:      "Viewport Width",
						ValueType:        "Number",
						DefaultValueJSON: `1366`,
						Options: []OptionDoc{
							{ValueJSON: `1920`, Weight: 45},
							{ValueJSON: `1366`, Weight: 35},
							{ValueJSON: `1280`, Weight: 20},
						},
					},
					{
						Key:              "device.viewport.height",
						DisplayName:      "Viewport Height",
						ValueType:        "Number",
						DefaultValueJSON: `768`,
						DependenciesJSON: `["device.viewport.width"]`,
						Options: []OptionDoc{
							{ValueJSON: `1080`, Weight: 45},
							{ValueJSON: `768`, Weight: 35},
							{ValueJSON: `720`, Weight: 20},
						},
					},
					{
						Key:              "device.hardwareConcurrency",
						DisplayName:      "Hardware Concurrency",
						ValueType:        "Number",
						DefaultValueJSON: `8`,
						Options: []OptionDoc{
							{ValueJSON: `8`, Weight: 45},
							{ValueJSON: `12`, Weight: 25},
							{ValueJSON: `16`, Weight: 20},
							{ValueJSON: `4`, Weight: 10},
						},
					},
					{
						Key:              "device.deviceMemory",
						DisplayName:      "Device Memory (GB)",
						ValueType:        "Number",
						DefaultValueJSON: `8`,
						Options: []OptionDoc{
							{ValueJSON: `8`, Weight: 60},
							{ValueJSON: `16`, Weight: 30},
							{ValueJSON: `32`, Weight: 10},
						},
					},
					{
						Key:              "device.maxTouchPoints",
						DisplayName:      "Max Touch Points",
						ValueType:        "Number",
						DefaultValueJSON: `0`,
						Options: []OptionDoc{
							{ValueJSON: `0`, Weight: 90, DeviceClass: ptr("desktop")},
							{ValueJSON: `5`, Weight: 10, DeviceClass: ptr("mobile")},
						},
					},
				},
			},
			{
				Name:  "network",
				Order: 5,
				Traits: []TraitDoc{
					{
						Key:              "headers.order",
						DisplayName:      "Header Order",
						ValueType:        "Array",
						DefaultValueJSON: `["user-agent","accept-language"]`,
						Options: []OptionDoc{
							{ValueJSON: `["user-agent","accept","accept-language","accept-encoding"]`, Weight: 70},
							{ValueJSON: `["accept","user-agent","accept-encoding","accept-language"]`, Weight: 30},
						},
					},
					{
						Key:              "headers.extra",
						DisplayName:      "Extra Headers",
						ValueType:        "Object",
						DefaultValueJSON: `{"accept":"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8","accept-encoding":"gzip, deflate, br"}`,
					},
				},
			},
		},
		Presets: []PresetDoc{
			{
				Name:       "cn-desktop-chrome",
				Scope:      "region:CN",
				TraitsJSON: `{"system.locale":"zh-CN","system.timezone":"Asia/Shanghai","browser.platform":"Win32","browser.uach.platform":"Windows"}`,
			},
			{
				Name:       "us-desktop-chrome",
				Scope:      "region:US",
				TraitsJSON: `{"system.locale":"en-US","system.timezone":"America/New_York","browser.platform":"Win32","browser.uach.platform":"Windows"}`,
			},
		},
	}
}
