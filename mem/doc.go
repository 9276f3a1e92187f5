// Package mem describes physical and virtual memory at page granularity and
// hands out physical frames during boot.
//
// The firmware memory map is a list of [Region] values, each tagged with a
// [RegionType]. [BootAllocator] walks the usable regions in order and hands
// out their 4 KiB frames one at a time. It is a bump allocator. A frame is
// never handed out twice and never returned, and once the usable frames run
// out every later call fails.
//
// The allocator is owned by the boot sequence and is not safe for concurrent
// use.
package mem
