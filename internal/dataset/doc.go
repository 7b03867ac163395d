// Package dataset 维护数据集目录与在线抓取契约，并提供统一的注册入口。
//
// 数据源作者需要：
//  1. 在 internal/dataset/<source>/ 目录下实现抓取与解析逻辑；
//  2. 通过本包暴露的 MustRegister/MustRegisterFetcher 在 init() 中完成注册；
//  3. 保证抓取结果只以 table.Result 两种形态返回，并补充中文注释说明数据源细节。
//
// 目录同时负责请求校验（ID 存在性、可见性、表键归属），校验不做任何 I/O。
package dataset
