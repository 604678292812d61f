package config

import "github.com/tauraamui/rgbdplay/pkg/configdef"

type defaultSettingKey uint

const (
	BACKEND       defaultSettingKey = 0x0
	RENDERER      defaultSettingKey = 0x1
	WINDOW        defaultSettingKey = 0x2
	POINTCLOUD    defaultSettingKey = 0x3
	MAXEMPTYPOLLS defaultSettingKey = 0x4
	MOCKFRAMES    defaultSettingKey = 0x5
)

var defaultSettings = map[defaultSettingKey]interface{}{
	BACKEND:  "opencv",
	RENDERER: "window",
	WINDOW: configdef.Window{
		Title:     "reader",
		Width:     1920,
		Height:    540,
		WaitKeyMS: 1,
	},
	POINTCLOUD: configdef.PointCloud{
		Format:     "pcd",
		Encoding:   "ascii",
		DepthScale: 1000,
		DepthTrunc: 3,
	},
	MAXEMPTYPOLLS: 300,
	MOCKFRAMES:    300,
}

func defaultValues() configdef.Values {
	return configdef.Values{
		Backend:       defaultSettings[BACKEND].(string),
		Renderer:      defaultSettings[RENDERER].(string),
		Window:        defaultSettings[WINDOW].(configdef.Window),
		PointCloud:    defaultSettings[POINTCLOUD].(configdef.PointCloud),
		MaxEmptyPolls: defaultSettings[MAXEMPTYPOLLS].(int),
		Mock:          configdef.Mock{Frames: defaultSettings[MOCKFRAMES].(int)},
	}
}
