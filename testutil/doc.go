// Copyright (c) VitalSight Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 assistcore 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，自动注册 Cleanup
  - 时钟: FakeClock，可手动推进，注入 cache.WithClock
  - 断言工具: AssertMessagesEqual / AssertEventuallyTrue

# 子包

  - testutil/mocks: MockToolExecutor（计数、错误注入、阻塞）与
    MockDataState（可变 DataFingerprint）
  - testutil/fixtures: 对话线程与工具调用样例

# 使用示例

	clock := testutil.NewFakeClock(time.Unix(0, 0))
	store := cache.NewResultStore(cfg, cache.WithClock(clock.Now))
	clock.Advance(time.Millisecond)
*/
package testutil
