package prompt

import "github.com/shouni/prompt-image-kit/pkg/domain"

// category は分類ラベルとそのキーワード集合の組です。キーワードは小文字で保持します。
type category struct {
	kind     domain.SegmentKind
	keywords []string
}

// tier は同時に評価するカテゴリの集まりです。
// tier 内では最長一致のキーワードを持つカテゴリが勝ち、同長なら先に並んでいる方が優先されます。
type tier []category

// classificationTiers は判定順に並んだ tier の一覧なのだ。
// 時間 > 天気 > 画風 > (場面・動作・人物の最長一致) > 背景 の順で評価します。
var classificationTiers = []tier{
	{{kind: domain.SegmentTime, keywords: timeKeywords}},
	{{kind: domain.SegmentWeather, keywords: weatherKeywords}},
	{{kind: domain.SegmentStyle, keywords: styleKeywords}},
	{
		{kind: domain.SegmentScene, keywords: sceneKeywords},
		{kind: domain.SegmentAction, keywords: actionKeywords},
		{kind: domain.SegmentCharacter, keywords: characterKeywords},
	},
	{{kind: domain.SegmentBackground, keywords: backgroundKeywords}},
}

var timeKeywords = []string{
	// zh
	"早晨", "清晨", "早上", "上午", "中午", "下午", "傍晚", "黄昏", "夜晚", "夜里", "深夜",
	"午夜", "黎明", "日出", "日落", "白天", "晚上", "凌晨", "半夜",
	// en
	"morning", "afternoon", "evening", "midnight", "dawn", "dusk", "sunset", "sunrise",
	"at night", "nighttime", "daytime", "noon", "twilight",
}

var weatherKeywords = []string{
	// zh
	"下雨", "雨天", "大雨", "小雨", "暴雨", "细雨", "下雪", "雪天", "大雪", "雪花", "多云",
	"阴天", "大雾", "雾气", "雷电", "闪电", "暴风", "彩虹", "刮风", "微风", "台风",
	// en
	"rainy", "raining", "snowy", "snowing", "cloudy", "foggy", "thunderstorm", "lightning",
	"rainbow", "windy", "overcast", "drizzle", "blizzard",
}

var styleKeywords = []string{
	// zh
	"风格", "动漫", "漫画", "水彩", "油画", "素描", "写实", "卡通", "赛博朋克", "像素",
	"插画", "水墨画", "国风", "二次元", "3d渲染", "电影感", "厚涂",
	// en
	"style", "anime", "manga", "watercolor", "oil painting", "sketch", "photorealistic",
	"realistic", "cartoon", "cyberpunk", "pixel art", "illustration", "cinematic",
}

var sceneKeywords = []string{
	// zh
	"在", "位于", "场景", "环境", "室内", "室外", "城市", "街道", "乡村", "森林", "海边",
	"沙滩", "山上", "山顶", "湖边", "河边", "草地", "草原", "花园", "公园", "学校", "教室",
	"房间", "咖啡馆", "宫殿", "城堡", "沙漠", "天空",
	// en
	"in the", "at the", "forest", "beach", "city", "street", "village", "room", "park",
	"garden", "mountain", "lake", "river", "castle", "desert", "indoor", "outdoor", "scene",
}

var actionKeywords = []string{
	// zh
	"做", "正在", "进行", "行走", "奔跑", "跳跃", "坐着", "站立", "站着", "看着", "拿着",
	"穿着", "带着", "抱着", "走", "跑", "跳", "跑步", "跳舞", "唱歌", "吃", "喝", "飞翔",
	"微笑", "挥手",
	// en
	"running", "walking", "jumping", "sitting", "standing", "holding", "wearing", "looking",
	"dancing", "singing", "flying", "smiling", "eating",
}

var characterKeywords = []string{
	// zh
	"人", "角色", "女孩", "男孩", "少女", "少年", "女人", "男人", "老人", "孩子", "战士",
	"公主", "王子", "头发", "眼睛",
	// en
	"character", "girl", "boy", "woman", "man", "person", "hero", "princess", "warrior",
	"hair", "eyes",
}

var backgroundKeywords = []string{
	// zh
	"背景", "远景", "远处", "背后", "衬托",
	// en
	"background", "backdrop", "scenery", "distance",
}
