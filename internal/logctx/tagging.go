package logctx

import (
	"context"
	"devlogd/internal/global"
	"slices"
)

// Append new tag to tag list.
// Copy-on-write, parent context tags are never mutated
func AppendCtxTag(ctx context.Context, newTag string) (newCtx context.Context) {
	tags := append(slices.Clone(GetTagList(ctx)), newTag)
	newCtx = context.WithValue(ctx, global.LogTagsKey, tags)
	return
}

// Removes last index of tag list (copy-on-write)
func RemoveLastCtxTag(ctx context.Context) (newCtx context.Context) {
	tags := slices.Clone(GetTagList(ctx))
	if len(tags) > 0 {
		tags = tags[:len(tags)-1]
	}
	newCtx = context.WithValue(ctx, global.LogTagsKey, tags)
	return
}

// Overwrites entire tag list with given list
func OverwriteCtxTag(ctx context.Context, newList []string) (newCtx context.Context) {
	newCtx = context.WithValue(ctx, global.LogTagsKey, slices.Clone(newList))
	return
}

// Extracts tag list from context or returns empty array
func GetTagList(ctx context.Context) (tags []string) {
	tags, ok := ctx.Value(global.LogTagsKey).([]string)
	if !ok {
		tags = []string{}
	}
	return
}
