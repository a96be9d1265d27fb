package engine

import "interior-planboard/internal/domain"

// 统计是纯函数并且每次变更后重算。单张图纸的标记量级是几十到几百个，
// 不需要缓存。

// CountBySymbol 统计符号类型为 symbolType 的标记数量。
// scopeRoomID 非空时只统计归属该房间的标记，否则统计全部标记。
func CountBySymbol(markers []domain.Marker, symbolType string, scopeRoomID string) int {
	count := 0
	for _, m := range markers {
		if m.Type != symbolType {
			continue
		}
		if scopeRoomID != "" && m.RoomID != scopeRoomID {
			continue
		}
		count++
	}
	return count
}

// CountAll 返回按符号类型分组的标记数量。
// scopeRoomID 非空时只统计归属该房间的标记。
func CountAll(markers []domain.Marker, scopeRoomID string) map[string]int {
	counts := make(map[string]int)
	for _, m := range markers {
		if scopeRoomID != "" && m.RoomID != scopeRoomID {
			continue
		}
		counts[m.Type]++
	}
	return counts
}
