// Package resolver 实现三层（本地缓存 / 远程资产仓库 / 在线抓取）解析引擎，
// 是整个系统的核心：决定请求走哪一层、以什么顺序回退、如何重试，
// 并在返回前统一完成表过滤、结构校验与出处标注。
package resolver
