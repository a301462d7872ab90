/*
# 概述

包 structured 从不可靠的自由文本（planner / summarizer 的输出）中
尽力提取一个 JSON 对象。

提取顺序：

 1. 空输入 → 无数据
 2. 带语言标记的 markdown 代码块（如 ```json）→ 尝试解析
 3. 文本中第一个最外层 {...} 片段 → 尝试解析
 4. 任何解析失败 → 无数据

ExtractJSON 从不返回错误，调用方需自行提供回退逻辑。

# 典型用法

	obj, ok := structured.ExtractJSON(output)
	if !ok {
		// 回退
	}
*/
package structured
